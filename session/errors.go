package session

import (
	"errors"
	"fmt"
)

// ErrBroken is wrapped by UnavailableError when a session without
// auto-reconnect has lost its connection for good.
var ErrBroken = errors.New("connection lost and auto-reconnect is disabled")

// UnavailableError reports a broken connection or a command timeout. It is
// transient when auto-reconnect is enabled: a later call may succeed.
type UnavailableError struct {
	Op  string
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("session: %s: store unavailable: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("session: %s %q: store unavailable: %v", e.Op, e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err for op/key; nil stays nil.
func Unavailable(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &UnavailableError{Op: op, Key: key, Err: err}
}
