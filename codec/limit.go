package codec

import "fmt"

// LimitCodec wraps another codec and caps payload sizes in both directions.
// A limit <= 0 disables that check.
//
// MaxEncode keeps oversized values out of the store (the write fails before any
// network call); MaxDecode protects readers from oversized entries planted in a
// shared store.
type LimitCodec[V any] struct {
	Inner     Codec[V]
	MaxEncode int
	MaxDecode int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, wrap("encode", "limit", err)
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, &Error{Op: "encode", Format: "limit", Err: fmt.Errorf("payload too large: %d > %d", len(b), c.MaxEncode)}
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, &Error{Op: "decode", Format: "limit", Err: fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)}
	}
	v, err := c.Inner.Decode(b)
	return v, wrap("decode", "limit", err)
}
