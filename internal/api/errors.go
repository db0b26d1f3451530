package api

// errors.go defines the error codes returned by both services

import "fmt"

// Error represents a structured error raised while handling an API request.
type Error struct {
	// code is the API error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *Error) Code() ErrorCode  { return e.code }
func (e *Error) Message() string { return e.message }
func (e *Error) Unwrap() error   { return e.wrapped }

// ErrorCode classifies API errors and determines the HTTP status of the error response.
type ErrorCode string

const (
	// ErrCodeMalformedRequest is used when the request body cannot be decoded
	ErrCodeMalformedRequest ErrorCode = "malformed_request"

	// ErrCodeUnauthenticated is used when a protected endpoint is called without
	// the identity header injected by the hosting platform
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"

	// ErrCodeForbidden is used when a callback does not carry the expected api-key
	ErrCodeForbidden ErrorCode = "forbidden"

	// ErrCodeNotFound is used when a tracked request or resource does not exist
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeUpstream is used when token acquisition or a platform API call fails
	ErrCodeUpstream ErrorCode = "upstream_error"

	// ErrCodeInternalError is used for unexpected failures
	ErrCodeInternalError ErrorCode = "internal_error"

	// ErrCodeRateLimitExceeded is used when the rate limit is exceeded
	// - this is only used in the middleware
	ErrCodeRateLimitExceeded ErrorCode = "rate_limited"

	// ErrCodeRequestTooLarge is used when the request body is too large
	// - this is only used in the middleware
	ErrCodeRequestTooLarge ErrorCode = "request_too_large"
)

// NewMalformedRequestError creates an error for malformed requests.
func NewMalformedRequestError(msg string) error {
	return &Error{code: ErrCodeMalformedRequest, message: msg}
}

// WrapMalformedRequestError wraps an existing error as a malformed request error.
func WrapMalformedRequestError(err error, msg string) error {
	return &Error{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

// NewUnauthenticatedError creates an error for requests without a usable identity.
func NewUnauthenticatedError(msg string) error {
	return &Error{code: ErrCodeUnauthenticated, message: msg}
}

// WrapUnauthenticatedError wraps an identity parsing failure.
func WrapUnauthenticatedError(err error, msg string) error {
	return &Error{code: ErrCodeUnauthenticated, message: msg, wrapped: err}
}

// NewForbiddenError creates an error for callers that are identified but not allowed.
func NewForbiddenError(msg string) error {
	return &Error{code: ErrCodeForbidden, message: msg}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(msg string) error {
	return &Error{code: ErrCodeNotFound, message: msg}
}

// WrapUpstreamError wraps a failure of token acquisition or of the credential platform.
//
// The wrapped error message is returned to the caller, so that the vendor error is visible in the browser.
func WrapUpstreamError(err error, msg string) error {
	return &Error{code: ErrCodeUpstream, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &Error{code: ErrCodeInternalError, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &Error{code: ErrCodeInternalError, message: msg, wrapped: err}
}

// NewRateLimitError creates a rate limit exceeded error.
func NewRateLimitError(msg string) error {
	return &Error{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewRequestTooLargeError creates a request too large error.
func NewRequestTooLargeError(msg string) error {
	return &Error{code: ErrCodeRequestTooLarge, message: msg}
}
