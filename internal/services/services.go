package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/verifiedid-demo/internal/config"
	"github.com/information-sharing-networks/verifiedid-demo/internal/identity"
)

// Services aggregates all external service integrations used by the issuer and verifier.
type Services struct {
	Tokens         TokenProvider
	RequestService RequestService

	// Directory and IDTokens are only created for the issuer
	Directory Directory
	IDTokens  *identity.IDTokenVerifier
}

// NewServices creates service implementations based on configuration.
// This is the single entry point for initializing all external service integrations.
func NewServices(ctx context.Context, cfg *config.ServerEnvironment, service config.Service, logger *slog.Logger) (*Services, error) {
	tokens := NewClientCredentialsTokenProvider(
		cfg.TokenURL(),
		cfg.AzureClientID,
		cfg.AzureClientSecret,
		&http.Client{Timeout: cfg.UpstreamTimeout},
	)

	s := &Services{
		Tokens:         tokens,
		RequestService: NewRequestServiceClient(cfg.VerifiedIDEndpoint, cfg.VerifiedIDScope, cfg.UpstreamTimeout, tokens),
	}

	if service != config.ServiceIssuer {
		return s, nil
	}

	s.Directory = NewGraphDirectory(cfg.GraphEndpoint, cfg.GraphScope, cfg.UpstreamTimeout, tokens, logger)

	idTokens, err := identity.NewIDTokenVerifier(ctx, identity.IDTokenVerifierConfig{
		JWKSURL:            cfg.IDTokenJWKSURL,
		MinRefreshInterval: cfg.JWKCacheMinRefresh,
		MaxRefreshInterval: cfg.JWKCacheMaxRefresh,
	}, logger)
	if err != nil {
		return nil, err
	}
	s.IDTokens = idTokens

	return s, nil
}
