// Package issuance implements the issuer endpoints: creating issuance requests for the
// signed in user and serving the user's profile and photo to the landing page.
package issuance

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/information-sharing-networks/verifiedid-demo/internal/profile"
	"github.com/information-sharing-networks/verifiedid-demo/internal/services"
)

// Config holds the issuance request settings
type Config struct {
	Authority      string
	ClientName     string
	CredentialType string
	ManifestURL    string

	// CallbackURL is the absolute URL of the request-callback endpoint
	CallbackURL string

	// CallbackAPIKey is sent as the api-key callback header when set
	CallbackAPIKey string

	// PinLength is the number of PIN digits, 0 disables the PIN
	PinLength int
}

// BuildClaims maps the profile, and the photo when available, to credential claims.
// Empty values are left out.
func BuildClaims(p *profile.Profile, photo *services.Photo) map[string]string {
	claims := map[string]string{}
	set := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			claims[name] = value
		}
	}

	set("displayName", p.DisplayName)
	set("givenName", p.GivenName)
	set("surname", p.Surname)
	set("mail", p.Mail)
	set("jobTitle", p.JobTitle)
	set("preferredLanguage", p.PreferredLanguage)

	if photo != nil && len(photo.Data) > 0 {
		claims["photo"] = base64.URLEncoding.EncodeToString(photo.Data)
	}
	return claims
}

// BuildIssuanceRequest creates the platform request document.
// state is the tracked request id; pin is empty when no PIN is required.
func BuildIssuanceRequest(cfg Config, state string, claims map[string]string, pin string) *services.IssuanceRequest {
	req := &services.IssuanceRequest{
		Authority:     cfg.Authority,
		IncludeQRCode: true,
		Registration:  services.Registration{ClientName: cfg.ClientName},
		Callback: services.Callback{
			URL:   cfg.CallbackURL,
			State: state,
		},
		Type:     cfg.CredentialType,
		Manifest: cfg.ManifestURL,
		Claims:   claims,
	}

	if cfg.CallbackAPIKey != "" {
		req.Callback.Headers = map[string]string{"api-key": cfg.CallbackAPIKey}
	}
	if pin != "" {
		req.Pin = &services.Pin{Value: pin, Length: len(pin)}
	}
	return req
}

// GeneratePIN returns a random numeric PIN of the given length
func GeneratePIN(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}

	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate pin: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
