// Package callback ingests the status callbacks posted by the credential platform.
//
// The platform calls back with the state it was given when the request was created; the state is
// the tracked request id. Callbacks are always acknowledged with 200 (unless the optional api key
// check fails) so that the platform does not retry, even when the state matches no request.
package callback

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator"
	"github.com/mitchellh/mapstructure"

	"github.com/information-sharing-networks/verifiedid-demo/internal/tracker"
)

// EventError is the error reported by the platform for issuance_error and presentation_error
type EventError struct {
	Code    string `mapstructure:"code" json:"code"`
	Message string `mapstructure:"message" json:"message"`
}

type CredentialState struct {
	RevocationStatus string `mapstructure:"revocationStatus" json:"revocationStatus"`
}

type FaceCheckResult struct {
	MatchConfidenceScore float64 `mapstructure:"matchConfidenceScore" json:"matchConfidenceScore"`
}

// VerifiedCredential is one presented credential in a presentation_verified callback
type VerifiedCredential struct {
	Issuer           string           `mapstructure:"issuer"`
	Type             []string         `mapstructure:"type"`
	Claims           map[string]any   `mapstructure:"claims"`
	CredentialState  *CredentialState `mapstructure:"credentialState"`
	FaceCheck        *FaceCheckResult `mapstructure:"faceCheck"`
	DomainValidation map[string]any   `mapstructure:"domainValidation"`
	IssuanceDate     string           `mapstructure:"issuanceDate"`
	ExpirationDate   string           `mapstructure:"expirationDate"`
}

// Event is a decoded platform callback.
//
// Current API versions report the status in requestStatus, older ones in code; both are accepted.
type Event struct {
	RequestID               string               `mapstructure:"requestId"`
	RequestStatus           string               `mapstructure:"requestStatus"`
	Code                    string               `mapstructure:"code"`
	State                   string               `mapstructure:"state" validate:"required"`
	Subject                 string               `mapstructure:"subject"`
	VerifiedCredentialsData []VerifiedCredential `mapstructure:"verifiedCredentialsData"`
	Receipt                 map[string]any       `mapstructure:"receipt"`
	Error                   *EventError          `mapstructure:"error"`

	// Extra holds fields this version does not model
	Extra map[string]any `mapstructure:",remain"`
}

// Status returns the status reported by the callback
func (e *Event) Status() string {
	if e.RequestStatus != "" {
		return e.RequestStatus
	}
	return e.Code
}

var validate = validator.New()

// Decode reads a callback body.
// It fails when the body is not a JSON object, or when state or status are missing.
func Decode(r io.Reader) (*Event, error) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("callback body is not a JSON object: %w", err)
	}

	var ev Event
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ev,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode callback: %w", err)
	}

	if err := validate.Struct(&ev); err != nil {
		return nil, fmt.Errorf("invalid callback: %w", err)
	}
	if ev.Status() == "" {
		return nil, fmt.Errorf("invalid callback: requestStatus is required")
	}
	return &ev, nil
}

// Result builds the result attached to the tracked request for this event, or nil if the event carries none.
//
// The success status for the kind records the presented credential; error statuses record the platform error.
func (e *Event) Result(kind tracker.Kind) map[string]any {
	status := e.Status()

	if e.Error != nil || status == tracker.StatusIssuanceError || status == tracker.StatusPresentationError {
		var code, message string
		if e.Error != nil {
			code, message = e.Error.Code, e.Error.Message
		}
		return map[string]any{
			"error": map[string]any{"code": code, "message": message},
		}
	}

	if status != tracker.SuccessStatus(kind) {
		return nil
	}

	result := map[string]any{}
	if e.Subject != "" {
		result["subject"] = e.Subject
	}
	if len(e.VerifiedCredentialsData) > 0 {
		vc := e.VerifiedCredentialsData[0]
		if vc.Claims != nil {
			result["claims"] = vc.Claims
		}
		if vc.Issuer != "" {
			result["issuer"] = vc.Issuer
		}
		if len(vc.Type) > 0 {
			result["type"] = vc.Type
		}
		if vc.CredentialState != nil {
			result["credentialState"] = vc.CredentialState
		}
		if vc.FaceCheck != nil {
			result["faceCheck"] = vc.FaceCheck
		}
		if vc.DomainValidation != nil {
			result["domainValidation"] = vc.DomainValidation
		}
		if vc.ExpirationDate != "" {
			result["expirationDate"] = vc.ExpirationDate
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
