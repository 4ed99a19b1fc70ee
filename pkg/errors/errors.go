package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goErrors.New(msg)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}

// contextError annotates an error with a description of what was being done
// when it occurred.
type contextError struct {
	context string
	err     error
}

// WithContext wraps `err` with `context`. The resulting message is of the
// form "context: err".
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// FriendlyError is an error whose message is meant to be shown directly to
// users, without any of the context used for debugging.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	msg string
}

// NewFriendlyError creates an error with a message that can be shown to
// users as is.
func NewFriendlyError(format string, args ...interface{}) error {
	return friendlyError{fmt.Sprintf(format, args...)}
}

func (err friendlyError) Error() string {
	return err.msg
}

func (err friendlyError) FriendlyMessage() string {
	return err.msg
}

// RootCause unwraps `err` until it reaches an error that doesn't wrap
// anything.
func RootCause(err error) error {
	for {
		next := goErrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// GetPrintableMessage returns the message that should be shown to the user
// for `err`. If any error in the chain is a FriendlyError, its message is
// used. Otherwise, the full error with context is returned.
func GetPrintableMessage(err error) string {
	var friendly FriendlyError
	if As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}
