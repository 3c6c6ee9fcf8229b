package codec

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/unkn0wn-root/topocache/internal/wire"
)

type registered struct {
	encode func(any) ([]byte, error)
	decode func([]byte) (any, error)
}

// Registry is a Codec[any] for caches holding values of several types.
// Each concrete type is registered under a tag; the tag is stored with the
// value so a read returns the same concrete type that was written.
//
//	r := codec.NewRegistry()
//	codec.MustRegister(r, "user", codec.JSON[User]{})
//	codec.MustRegister(r, "order", codec.Msgpack[Order]{})
type Registry struct {
	mu     sync.RWMutex
	byTag  map[string]registered
	byType map[reflect.Type]string
}

var _ Codec[any] = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		byTag:  make(map[string]registered),
		byType: make(map[reflect.Type]string),
	}
}

// Register binds T to tag. A tag or type can only be registered once.
func Register[T any](r *Registry, tag string, inner Codec[T]) error {
	if tag == "" || len(tag) > wire.MaxTagLen {
		return fmt.Errorf("codec: invalid tag %q", tag)
	}
	rt := reflect.TypeFor[T]()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byTag[tag]; dup {
		return fmt.Errorf("codec: tag %q already registered", tag)
	}
	if prev, dup := r.byType[rt]; dup {
		return fmt.Errorf("codec: type %s already registered as %q", rt, prev)
	}
	r.byType[rt] = tag
	r.byTag[tag] = registered{
		encode: func(v any) ([]byte, error) { return inner.Encode(v.(T)) },
		decode: func(b []byte) (any, error) { return inner.Decode(b) },
	}
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](r *Registry, tag string, inner Codec[T]) {
	if err := Register(r, tag, inner); err != nil {
		panic(err)
	}
}

func (r *Registry) Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, &Error{Op: "encode", Format: "registry", Err: fmt.Errorf("%w: <nil>", ErrUnknownType)}
	}
	rt := reflect.TypeOf(v)

	r.mu.RLock()
	tag, ok := r.byType[rt]
	reg := r.byTag[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, &Error{Op: "encode", Format: "registry", Err: fmt.Errorf("%w: %s", ErrUnknownType, rt)}
	}

	payload, err := reg.encode(v)
	if err != nil {
		return nil, wrap("encode", tag, err)
	}
	b, err := wire.EncodeValue(tag, payload)
	if err != nil {
		return nil, &Error{Op: "encode", Format: "frame", Err: err}
	}
	return b, nil
}

func (r *Registry) Decode(b []byte) (any, error) {
	tag, payload, err := wire.DecodeValue(b)
	if err != nil {
		return nil, &Error{Op: "decode", Format: "frame", Err: err}
	}

	r.mu.RLock()
	reg, ok := r.byTag[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, &Error{Op: "decode", Format: "registry", Err: fmt.Errorf("%w: tag %q", ErrUnknownType, tag)}
	}
	v, err := reg.decode(payload)
	if err != nil {
		return nil, wrap("decode", tag, err)
	}
	return v, nil
}
