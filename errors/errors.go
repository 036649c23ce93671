package errors

import (
	"fmt"
	"time"
)

// DaemonError is the interface for all structured errors in the daemon.
// It extends the standard error interface with the classification the
// shutdown path needs to decide how loudly a failure is reported.
type DaemonError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() Code

	// Category returns the error category.
	Category() Category

	// Severity returns how the failure should surface in the log.
	Severity() Severity

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of DaemonError.
type Error struct {
	code      Code
	category  Category
	message   string
	cause     error
	component string
	timestamp time.Time
}

// Ensure Error implements DaemonError.
var _ DaemonError = (*Error)(nil)

// Option configures an Error at construction time.
type Option func(*Error)

// WithCause attaches the underlying error.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// WithComponent records which component produced the error.
func WithComponent(component string) Option {
	return func(e *Error) {
		e.component = component
	}
}

// New creates a classified error.
func New(code Code, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.message
	if e.component != "" {
		msg = fmt.Sprintf("%s: %s", e.component, msg)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Code returns the error code.
func (e *Error) Code() Code {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() Category {
	return e.category
}

// Severity returns the severity implied by the category.
func (e *Error) Severity() Severity {
	return e.category.Severity()
}

// Timestamp returns when the error was created.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}
