package config

import "fmt"

// Error reports invalid or incomplete settings. It is detected before any
// connection is attempted and is fatal to startup.
type Error struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "config: " + e.Field
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }
