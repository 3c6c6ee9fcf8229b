package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned by Registry for values or tags nobody registered.
	ErrUnknownType = errors.New("no codec registered for type")
	// ErrTagMismatch is returned by Framed when a stored value carries another type tag.
	ErrTagMismatch = errors.New("type tag mismatch")
)

// Error is the serialization failure type. Op is "encode" or "decode",
// Format names the codec ("json", "msgpack", "frame", ...).
type Error struct {
	Op     string
	Format string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec: %s %s: %v", e.Format, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap returns nil for a nil err and never double-wraps an *Error.
func wrap(op, format string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Op: op, Format: format, Err: err}
}
