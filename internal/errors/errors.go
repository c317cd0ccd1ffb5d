// Package errors provides standardized error handling for the storefront service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code for the storefront service.
type ErrorCode string

const (
	// Dispatch errors
	SF_NOT_FOUND  ErrorCode = "SF_NOT_FOUND"  // Unknown procedure
	SF_VALIDATION ErrorCode = "SF_VALIDATION" // Input rejected by the procedure schema
	SF_BAD_METHOD ErrorCode = "SF_BAD_METHOD" // HTTP method not supported

	// Upstream errors
	SF_UPSTREAM ErrorCode = "SF_UPSTREAM" // Remote API call failed

	// Rate limiting
	SF_RATE_LIMIT ErrorCode = "SF_RATE_LIMIT" // Too many requests

	// Server errors
	SF_INTERNAL ErrorCode = "SF_INTERNAL" // Anything else
)

// DefaultMessage is used when a failure carries no message of its own.
const DefaultMessage = "Internal server error"

// Error represents a standardized error response.
// Only Message reaches the wire body; Code is sent in a header and logged.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"-"`
	cause      error
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatusCodeForCode(code),
	}
}

// Wrap creates a new Error that keeps cause in its chain.
// The cause is never exposed to callers over the wire.
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// From converts any error into an *Error.
// Errors that are already classified keep their code; everything else becomes
// SF_INTERNAL carrying err's message, or DefaultMessage when that is empty.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Message == "" {
			e.Message = DefaultMessage
		}
		return e
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = DefaultMessage
	}
	return Wrap(SF_INTERNAL, msg, err)
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
// Validation and upstream failures are reported as 500 to keep the wire
// contract of the RPC endpoint.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case SF_NOT_FOUND:
		return http.StatusNotFound
	case SF_BAD_METHOD:
		return http.StatusMethodNotAllowed
	case SF_RATE_LIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
