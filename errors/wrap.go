package errors

import (
	"context"
	"errors"
)

// Wrap wraps an error with additional context while preserving the chain.
// If err is nil, Wrap returns nil. If err is already a classified Error,
// its code and category are preserved; otherwise the wrapper is classified
// as internal, with context timeouts mapped to a cancellation timeout.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	var derr *Error
	if errors.As(err, &derr) {
		wrapped := &Error{
			code:      derr.code,
			category:  derr.category,
			message:   message,
			cause:     err,
			component: derr.component,
			timestamp: derr.timestamp,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTaskTimeout, message, append(opts, WithCause(err))...)
	}

	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// CodeOf extracts the error code, or ErrCodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code()
	}
	return ErrCodeInternal
}

// SeverityOf extracts the severity, or SeverityError for unclassified errors.
func SeverityOf(err error) Severity {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Severity()
	}
	return SeverityError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code() == code
	}
	return false
}
