// Package verification implements the verifier endpoint that creates presentation requests.
package verification

import (
	"github.com/information-sharing-networks/verifiedid-demo/internal/services"
)

// Config holds the presentation request settings
type Config struct {
	Authority       string
	ClientName      string
	CredentialType  string
	Purpose         string
	AcceptedIssuers []string

	// CallbackURL is the absolute URL of the verification-callback endpoint
	CallbackURL    string
	CallbackAPIKey string

	AllowRevoked         bool
	ValidateLinkedDomain bool

	// face check settings, used when the browser asks for a face check
	FaceCheckPhotoClaim string
	FaceCheckThreshold  int
}

// BuildPresentationRequest creates the platform request document.
// state is the tracked request id.
func BuildPresentationRequest(cfg Config, state string, includeFaceCheck bool) *services.PresentationRequest {
	validation := services.Validation{
		AllowRevoked:         cfg.AllowRevoked,
		ValidateLinkedDomain: cfg.ValidateLinkedDomain,
	}
	if includeFaceCheck {
		validation.FaceCheck = &services.FaceCheck{
			SourcePhotoClaimName:     cfg.FaceCheckPhotoClaim,
			MatchConfidenceThreshold: cfg.FaceCheckThreshold,
		}
	}

	req := &services.PresentationRequest{
		Authority:      cfg.Authority,
		IncludeQRCode:  true,
		IncludeReceipt: true,
		Registration: services.Registration{
			ClientName: cfg.ClientName,
			Purpose:    cfg.Purpose,
		},
		Callback: services.Callback{
			URL:   cfg.CallbackURL,
			State: state,
		},
		RequestedCredentials: []services.RequestedCredential{{
			Type:            cfg.CredentialType,
			Purpose:         cfg.Purpose,
			AcceptedIssuers: cfg.AcceptedIssuers,
			Configuration:   &services.CredentialConfiguration{Validation: validation},
		}},
	}

	if cfg.CallbackAPIKey != "" {
		req.Callback.Headers = map[string]string{"api-key": cfg.CallbackAPIKey}
	}
	return req
}
