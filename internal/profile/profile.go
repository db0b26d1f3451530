// Package profile resolves the profile of the signed in user for credential issuance.
//
// Profiles come from an ordered list of providers: the first provider that succeeds wins and
// failures are logged and skipped. The default chain is
//
//  1. the Graph directory (full profile)
//  2. the forwarded ID token claims
//  3. the identity header (always succeeds)
package profile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/information-sharing-networks/verifiedid-demo/internal/identity"
	"github.com/information-sharing-networks/verifiedid-demo/internal/logger"
	"github.com/information-sharing-networks/verifiedid-demo/internal/services"
)

// Source values reported in Profile.Source
const (
	SourceDirectory = "directory"
	SourceIDToken   = "id_token"
	SourceHeader    = "header"
)

// ErrNoProfile is returned when every provider failed
var ErrNoProfile = errors.New("no profile provider succeeded")

// Profile is the user data used to build credential claims.
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName,omitempty"`
	Surname           string `json:"surname,omitempty"`
	Mail              string `json:"mail,omitempty"`
	JobTitle          string `json:"jobTitle,omitempty"`
	PreferredLanguage string `json:"preferredLanguage,omitempty"`

	// Source names the provider that produced the profile
	Source string `json:"source"`
}

// Provider produces a profile for the principal, or an error if it cannot.
type Provider interface {
	Name() string
	Profile(ctx context.Context, principal *identity.Principal) (*Profile, error)
}

// Chain tries each provider in order.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Resolve returns the profile from the first provider that succeeds.
func (c *Chain) Resolve(ctx context.Context, principal *identity.Principal) (*Profile, error) {
	reqLogger := logger.ContextRequestLogger(ctx)

	for _, provider := range c.providers {
		p, err := provider.Profile(ctx, principal)
		if err == nil && p != nil {
			return p, nil
		}
		if err == nil {
			err = errors.New("provider returned no profile")
		}
		reqLogger.Warn("profile provider failed - trying next",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()))
	}
	return nil, ErrNoProfile
}

// DirectoryProvider reads the profile from the directory by principal id.
type DirectoryProvider struct {
	Directory services.Directory
}

func (d *DirectoryProvider) Name() string { return SourceDirectory }

func (d *DirectoryProvider) Profile(ctx context.Context, principal *identity.Principal) (*Profile, error) {
	dp, err := d.Directory.GetProfile(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:                dp.ID,
		DisplayName:       firstNonEmpty(dp.DisplayName, principal.Name),
		GivenName:         dp.GivenName,
		Surname:           dp.Surname,
		Mail:              firstNonEmpty(dp.Mail, dp.UserPrincipalName, principal.Email),
		JobTitle:          dp.JobTitle,
		PreferredLanguage: dp.PreferredLanguage,
		Source:            SourceDirectory,
	}, nil
}

// ClaimsReader returns the claims of a raw ID token
type ClaimsReader interface {
	Claims(ctx context.Context, token string) (*identity.IDTokenClaims, error)
}

// IDTokenProvider reads the profile from the ID token forwarded by the hosting platform.
type IDTokenProvider struct {
	Tokens ClaimsReader
}

func (t *IDTokenProvider) Name() string { return SourceIDToken }

func (t *IDTokenProvider) Profile(ctx context.Context, principal *identity.Principal) (*Profile, error) {
	if principal.IDToken == "" {
		return nil, errors.New("no id token forwarded")
	}

	claims, err := t.Tokens.Claims(ctx, principal.IDToken)
	if err != nil {
		return nil, err
	}
	if claims.ObjectID != "" && claims.ObjectID != principal.ID {
		return nil, errors.New("id token subject does not match the principal")
	}

	return &Profile{
		ID:                principal.ID,
		DisplayName:       firstNonEmpty(claims.Name, principal.Name),
		GivenName:         claims.GivenName,
		Surname:           claims.FamilyName,
		Mail:              firstNonEmpty(claims.Email, claims.PreferredUsername, principal.Email),
		PreferredLanguage: claims.Locale,
		Source:            SourceIDToken,
	}, nil
}

// HeaderProvider builds a reduced profile from the identity header alone.
type HeaderProvider struct{}

func (HeaderProvider) Name() string { return SourceHeader }

func (HeaderProvider) Profile(ctx context.Context, principal *identity.Principal) (*Profile, error) {
	return &Profile{
		ID:          principal.ID,
		DisplayName: principal.Name,
		GivenName:   principal.GivenName(),
		Surname:     principal.Surname(),
		Mail:        principal.Email,
		Source:      SourceHeader,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
