// Package errors defines the error taxonomy shared by spec acquisition,
// authentication and server bootstrap.
package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies an Error.
type ErrorType string

const (
	TypeInvalidCredentials ErrorType = "invalid_credentials"
	TypeInvalidURL         ErrorType = "invalid_url"
	TypeNotFound           ErrorType = "not_found"
	TypeDownload           ErrorType = "download"
	TypeParse              ErrorType = "parse"
	TypeTokenExchange      ErrorType = "token_exchange"
	TypeValidation         ErrorType = "validation"
	TypeInternal           ErrorType = "internal"
)

type contextKey string

// RequestIDKey is the context key under which a per-call request id is stored.
const RequestIDKey contextKey = "request_id"

// Error is a classified error with an optional underlying cause.
type Error struct {
	Type      ErrorType
	Message   string
	Details   string
	RequestID string
	Timestamp int64
	Cause     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error without a cause.
func New(errType ErrorType, message string, details string) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Unix(),
	}
}

// NewWithContext creates an Error and records the request id carried by ctx, if any.
func NewWithContext(ctx context.Context, errType ErrorType, message string, details string) *Error {
	err := New(errType, message, details)
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		err.RequestID = requestID
	}
	return err
}

// Wrap classifies cause. It returns nil when cause is nil.
func Wrap(cause error, errType ErrorType, message string) *Error {
	if cause == nil {
		return nil
	}
	err := New(errType, message, "")
	err.Cause = cause
	return err
}

// WrapWithContext is Wrap plus the request id carried by ctx.
func WrapWithContext(ctx context.Context, cause error, errType ErrorType, message string) *Error {
	if cause == nil {
		return nil
	}
	err := NewWithContext(ctx, errType, message, "")
	err.Cause = cause
	return err
}

// InvalidCredentials reports a credential tuple that does not fit its strategy.
func InvalidCredentials(message string) *Error {
	return New(TypeInvalidCredentials, message, "")
}

// IsType reports whether any error in err's chain is an *Error of type errType.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errType
	}
	return false
}

// GetType returns the type of the first *Error in err's chain, or TypeInternal.
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return TypeInternal
}
