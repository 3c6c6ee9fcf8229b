package codec

import (
	"fmt"
	"reflect"

	"github.com/unkn0wn-root/topocache/internal/wire"
)

// TypeTag returns the tag Framed uses for V. Named types carry their full
// import path, e.g. "example.com/app/model.User" or "[]*example.com/app/model.User".
func TypeTag[V any]() string {
	return typeName(reflect.TypeFor[V]())
}

func typeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeName(t.Elem())
	case reflect.Slice:
		return "[]" + typeName(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), typeName(t.Elem()))
	case reflect.Map:
		return "map[" + typeName(t.Key()) + "]" + typeName(t.Elem())
	default:
		return t.String()
	}
}

// Framed wraps a value codec with the tagged wire frame. Entries whose tag is
// not Tag are rejected with ErrTagMismatch instead of being decoded into the
// wrong shape.
type Framed[V any] struct {
	Inner Codec[V]
	Tag   string
}

// NewFramed frames inner with the static type tag of V.
func NewFramed[V any](inner Codec[V]) Framed[V] {
	return Framed[V]{Inner: inner, Tag: TypeTag[V]()}
}

func (f Framed[V]) Encode(v V) ([]byte, error) {
	payload, err := f.Inner.Encode(v)
	if err != nil {
		return nil, wrap("encode", f.Tag, err)
	}
	b, err := wire.EncodeValue(f.Tag, payload)
	if err != nil {
		return nil, &Error{Op: "encode", Format: "frame", Err: err}
	}
	return b, nil
}

func (f Framed[V]) Decode(b []byte) (V, error) {
	var zero V
	tag, payload, err := wire.DecodeValue(b)
	if err != nil {
		return zero, &Error{Op: "decode", Format: "frame", Err: err}
	}
	if tag != f.Tag {
		return zero, &Error{Op: "decode", Format: "frame", Err: fmt.Errorf("%w: stored %q, want %q", ErrTagMismatch, tag, f.Tag)}
	}
	v, err := f.Inner.Decode(payload)
	if err != nil {
		return zero, wrap("decode", f.Tag, err)
	}
	return v, nil
}
