package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// ErrNoKeyCodec is returned by DefaultKey for key types without a natural
// text form.
var ErrNoKeyCodec = errors.New("codec: no default key codec")

// Signed is the set of signed integer key types.
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is the set of unsigned integer key types.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// StringKey stores string keys as they are.
type StringKey[K ~string] struct{}

func (StringKey[K]) EncodeKey(k K) (string, error) { return string(k), nil }
func (StringKey[K]) DecodeKey(s string) (K, error) { return K(s), nil }

// IntKey stores signed integer keys in base 10.
type IntKey[K Signed] struct{}

func (IntKey[K]) EncodeKey(k K) (string, error) { return strconv.FormatInt(int64(k), 10), nil }

func (IntKey[K]) DecodeKey(s string) (K, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &Error{Op: "decode", Format: "key", Err: err}
	}
	k := K(n)
	if int64(k) != n {
		return 0, &Error{Op: "decode", Format: "key", Err: fmt.Errorf("key %q overflows %T", s, k)}
	}
	return k, nil
}

// UintKey stores unsigned integer keys in base 10.
type UintKey[K Unsigned] struct{}

func (UintKey[K]) EncodeKey(k K) (string, error) { return strconv.FormatUint(uint64(k), 10), nil }

func (UintKey[K]) DecodeKey(s string) (K, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &Error{Op: "decode", Format: "key", Err: err}
	}
	k := K(n)
	if uint64(k) != n {
		return 0, &Error{Op: "decode", Format: "key", Err: fmt.Errorf("key %q overflows %T", s, k)}
	}
	return k, nil
}

// DefaultKey returns a key codec for K when K is a string or integer kind,
// including named types such as `type UserID int64`. Any other key type needs
// an explicit KeyCodec.
func DefaultKey[K comparable]() (KeyCodec[K], error) {
	t := reflect.TypeFor[K]()
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindKey[K]{}, nil
	default:
		return nil, fmt.Errorf("%w for %s", ErrNoKeyCodec, t)
	}
}

type kindKey[K comparable] struct{}

func (kindKey[K]) EncodeKey(k K) (string, error) {
	v := reflect.ValueOf(k)
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	default:
		return strconv.FormatUint(v.Uint(), 10), nil
	}
}

func (kindKey[K]) DecodeKey(s string) (K, error) {
	var k K
	v := reflect.ValueOf(&k).Elem()
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return k, &Error{Op: "decode", Format: "key", Err: err}
		}
		v.SetInt(n)
	default:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return k, &Error{Op: "decode", Format: "key", Err: err}
		}
		v.SetUint(n)
	}
	return k, nil
}
