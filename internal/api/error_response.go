package api

// error_response.go maps errors to the JSON error body shared by both services.

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/information-sharing-networks/verifiedid-demo/internal/logger"
)

// ErrorResponse is the body returned for every failed request
type ErrorResponse struct {
	Success bool `json:"success" example:"false"`

	// Error is a short description of what failed
	Error string `json:"error" example:"Request not found"`

	// Message carries detail, e.g. the error reported by the credential platform
	Message string `json:"message,omitempty" example:"The request has expired or does not exist"`

	// statusCode is the HTTP status to send
	statusCode int
}

// StatusCode returns the HTTP status code the response should be sent with
func (e *ErrorResponse) StatusCode() int { return e.statusCode }

// MapErrorToResponse maps an api.Error (or a generic error) to an error response.
//
// Unmapped error types are reported as internal errors and logged, since every
// handler is expected to wrap failures in an api.Error.
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return errorResponseFromAPIError(apiErr)
	}

	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	return &ErrorResponse{
		Error:      "Internal Error",
		Message:    "An internal error occurred",
		statusCode: http.StatusInternalServerError,
	}
}

func errorResponseFromAPIError(err *Error) *ErrorResponse {
	var statusCode int
	message := err.Message()

	switch err.Code() {
	case ErrCodeMalformedRequest:
		statusCode = http.StatusBadRequest
	case ErrCodeUnauthenticated:
		statusCode = http.StatusUnauthorized
	case ErrCodeForbidden:
		statusCode = http.StatusUnauthorized
	case ErrCodeNotFound:
		statusCode = http.StatusNotFound
	case ErrCodeRateLimitExceeded:
		statusCode = http.StatusTooManyRequests
	case ErrCodeRequestTooLarge:
		statusCode = http.StatusRequestEntityTooLarge
	case ErrCodeUpstream:
		statusCode = http.StatusInternalServerError
		// the upstream message is surfaced to the caller
		if err.Unwrap() != nil {
			message = err.Unwrap().Error()
		}
	default:
		// internal error details are logged, not returned
		statusCode = http.StatusInternalServerError
		message = "An internal error occurred"
	}

	return &ErrorResponse{
		Error:      errorText(err),
		Message:    message,
		statusCode: statusCode,
	}
}

// errorText returns the short description used in the error field
func errorText(err *Error) string {
	switch err.Code() {
	case ErrCodeUnauthenticated, ErrCodeForbidden:
		return "Unauthorized"
	case ErrCodeRateLimitExceeded:
		return "Rate limit exceeded"
	case ErrCodeRequestTooLarge:
		return "Request too large"
	case ErrCodeInternalError:
		return "Internal Error"
	default:
		return err.Message()
	}
}
