package services

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

var (
	// ErrUserNotFound is returned by the directory when the principal does not exist
	ErrUserNotFound = errors.New("user not found in directory")

	// ErrPhotoNotFound is returned when none of the photo variants are available
	ErrPhotoNotFound = errors.New("user photo not found")
)

// AuthenticationError is returned when an access token cannot be acquired for a scope.
type AuthenticationError struct {
	Scope string

	// Code and Description are set when the token endpoint returned an OAuth error body
	Code        string
	Description string

	Err error
}

func newAuthenticationError(scope string, err error) *AuthenticationError {
	authErr := &AuthenticationError{Scope: scope, Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		authErr.Code = retrieveErr.ErrorCode
		authErr.Description = retrieveErr.ErrorDescription
	}
	return authErr
}

func (e *AuthenticationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("failed to acquire access token for %s: %s: %s", e.Scope, e.Code, e.Description)
	}
	return fmt.Sprintf("failed to acquire access token for %s: %v", e.Scope, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// UpstreamError is returned when a remote API call fails.
//
// Error() returns the vendor message when the API supplied one, so it can be shown to the caller as is.
type UpstreamError struct {
	// Operation names the call, e.g. createIssuanceRequest
	Operation string

	// StatusCode is 0 when no response was received
	StatusCode int

	// RequestID is the platform's request id for support correlation, if returned
	RequestID string

	Code         string
	Message      string
	InnerCode    string
	InnerMessage string
	Target       string

	Err error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Message != "" && e.InnerMessage != "":
		return fmt.Sprintf("%s %s", e.Message, e.InnerMessage)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	default:
		return fmt.Sprintf("%s failed with HTTP status %d", e.Operation, e.StatusCode)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
