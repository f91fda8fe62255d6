package sshdedit

import (
	"errors"
	"fmt"
)

var (
	// ErrAddressConflict reports a (key, condition) address the caller should never have sent:
	// an empty key, the Match keyword used as a key, a condition naming one criterion twice, or
	// two items of one batch aimed at the same address.
	ErrAddressConflict = errors.New("address conflict")

	// ErrUnknownKey is returned when a strict policy has no entry for the key.
	ErrUnknownKey = errors.New("unknown key")

	// ErrNoValue is returned when a setting must be created but no value was supplied.
	ErrNoValue = errors.New("no value to set")
)

// ParseError represents a parsing error with location information.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("sshdedit: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("sshdedit: %s:%d: %s", e.Path, e.Line, e.Reason)
}

// EditError wraps a failed edit with the address it was aimed at.
type EditError struct {
	Key       string
	Condition Condition
	Err       error
}

func (e *EditError) Error() string {
	if e.Condition.IsZero() {
		return fmt.Sprintf("sshdedit: %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("sshdedit: %s (Match %s): %v", e.Key, e.Condition, e.Err)
}

func (e *EditError) Unwrap() error { return e.Err }

func editErr(key string, cond Condition, err error) error {
	return &EditError{Key: key, Condition: cond, Err: err}
}
