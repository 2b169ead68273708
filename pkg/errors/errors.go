// Package errors implements the harmonized error taxonomy for the server
// framework. Backend failures of any shape are converted into a *ServerError
// carrying one of a closed set of kinds, and only then translated into a
// JSON-RPC wire error. Raw backend error types never leak into responses.
package errors

import (
	"fmt"

	"github.com/mcpserve/mcpserve/pkg/protocol"
)

// ServerError is a harmonized error: a kind, a free-form context string,
// optional structured data for the wire, and an optional wrapped cause.
type ServerError struct {
	Kind    Kind
	Context string
	Data    any
	cause   error
}

// New creates a harmonized error.
func New(kind Kind, context string) *ServerError {
	return &ServerError{Kind: kind, Context: context}
}

// Newf creates a harmonized error with a formatted context string.
func Newf(kind Kind, format string, args ...any) *ServerError {
	return &ServerError{Kind: kind, Context: fmt.Sprintf(format, args...)}
}

// Wrap creates a harmonized error preserving the cause for errors.Is/As.
func Wrap(kind Kind, context string, cause error) *ServerError {
	return &ServerError{Kind: kind, Context: context, cause: cause}
}

// WithData returns a copy carrying structured data for the wire error.
func (e *ServerError) WithData(data any) *ServerError {
	cp := *e
	cp.Data = data
	return &cp
}

func (e *ServerError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func (e *ServerError) Unwrap() error {
	return e.cause
}

// Message returns the text exposed on the wire. The cause chain is kept
// server-side; callers never see backend-internal representations.
func (e *ServerError) Message() string {
	return e.Context
}

// Convenience constructors, one per kind.

func Config(context string) *ServerError     { return New(KindConfig, context) }
func Connection(context string) *ServerError { return New(KindConnection, context) }
func Auth(context string) *ServerError       { return New(KindAuth, context) }
func Validation(context string) *ServerError { return New(KindValidation, context) }
func Storage(context string) *ServerError    { return New(KindStorage, context) }
func Network(context string) *ServerError    { return New(KindNetwork, context) }
func Timeout(context string) *ServerError    { return New(KindTimeout, context) }
func RateLimit(context string) *ServerError  { return New(KindRateLimit, context) }
func Internal(context string) *ServerError   { return New(KindInternal, context) }

// NotFound reports a missing named entity, e.g. NotFound("tool", "echo").
func NotFound(entity, name string) *ServerError {
	return Newf(KindNotFound, "%s not found: %s", entity, name)
}

// PermissionDenied reports a forbidden operation.
func PermissionDenied(context string) *ServerError {
	return New(KindPermissionDenied, context)
}

// Custom wraps a backend-defined error with no closer kind.
func Custom(cause error) *ServerError {
	return Wrap(KindCustom, cause.Error(), cause)
}

// ToWireError converts a harmonized error into a JSON-RPC error object.
// This is the only path from backend failures to the wire.
func ToWireError(e *ServerError) *protocol.Error {
	if e == nil {
		return nil
	}
	return &protocol.Error{
		Code:    e.Kind.Code(),
		Message: e.Message(),
		Data:    e.Data,
	}
}
