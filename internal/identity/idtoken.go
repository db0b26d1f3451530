package identity

// idtoken.go reads the profile claims carried by the forwarded Entra ID token.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// allowed clock skew when checking exp and nbf
const clockSkew = 5 * time.Minute

var (
	ErrTokenExpired     = errors.New("id token has expired")
	ErrTokenNotYetValid = errors.New("id token is not yet valid")
)

// IDTokenClaims are the profile claims read from the ID token
type IDTokenClaims struct {
	ObjectID          string `json:"oid"`
	TenantID          string `json:"tid"`
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Locale            string `json:"xms_pl"`
	Issuer            string `json:"iss"`
	Expiry            int64  `json:"exp"`
	NotBefore         int64  `json:"nbf"`
}

// IDTokenVerifierConfig configures the signing key source
type IDTokenVerifierConfig struct {
	// JWKSURL is the tenant's discovery keys endpoint. When empty the token signature is not checked
	// (the hosting platform has already validated it before forwarding).
	JWKSURL string

	MinRefreshInterval time.Duration
	MaxRefreshInterval time.Duration

	// WaitReady blocks construction until the first key set has been fetched
	WaitReady bool
}

// IDTokenVerifier extracts claims from X-MS-TOKEN-AAD-ID-TOKEN.
//
// When a JWKS URL is configured the signing keys are held in a jwk.Cache that refreshes in the
// background, and the verifier acts as the jws.KeyProvider for signature checks.
type IDTokenVerifier struct {
	jwksURL  string
	jwkCache *jwk.Cache
	logger   *slog.Logger
	now      func() time.Time
}

var _ jws.KeyProvider = (*IDTokenVerifier)(nil)

// NewIDTokenVerifier creates the verifier and registers the JWKS endpoint, if any.
// The cache refresh goroutines stop when ctx is cancelled.
func NewIDTokenVerifier(ctx context.Context, cfg IDTokenVerifierConfig, logger *slog.Logger) (*IDTokenVerifier, error) {
	v := &IDTokenVerifier{
		jwksURL: cfg.JWKSURL,
		logger:  logger,
		now:     time.Now,
	}

	if cfg.JWKSURL == "" {
		logger.Debug("no JWKS URL configured - ID token signatures will not be checked")
		return v, nil
	}

	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK cache: %w", err)
	}

	err = cache.Register(ctx, cfg.JWKSURL,
		jwk.WithMinInterval(cfg.MinRefreshInterval),
		jwk.WithMaxInterval(cfg.MaxRefreshInterval),
		jwk.WithWaitReady(cfg.WaitReady),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register JWKS endpoint %s: %w", cfg.JWKSURL, err)
	}
	v.jwkCache = cache

	logger.Info("registered ID token JWKS endpoint", slog.String("jwk_url", cfg.JWKSURL))
	return v, nil
}

// FetchKeys implements jws.KeyProvider using the cached tenant key set
func (v *IDTokenVerifier) FetchKeys(ctx context.Context, sink jws.KeySink, sig *jws.Signature, msg *jws.Message) error {
	kid, ok := sig.ProtectedHeaders().KeyID()
	if !ok || kid == "" {
		return errors.New("kid is required in ID token header")
	}

	alg, ok := sig.ProtectedHeaders().Algorithm()
	if !ok {
		return errors.New("alg is required in ID token header")
	}

	keySet, err := v.jwkCache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to lookup JWK set: %w", err)
	}

	key, found := keySet.LookupKeyID(kid)
	if !found {
		return fmt.Errorf("signing key not found: %s", kid)
	}

	sink.Key(alg, key)
	return nil
}

// Claims returns the claims of token, checking the signature when a JWKS URL is configured
// and the exp/nbf times always.
func (v *IDTokenVerifier) Claims(ctx context.Context, token string) (*IDTokenClaims, error) {
	if token == "" {
		return nil, errors.New("id token is empty")
	}

	var payload []byte
	if v.jwkCache != nil {
		verified, err := jws.Verify([]byte(token), jws.WithKeyProvider(v), jws.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to verify id token: %w", err)
		}
		payload = verified
	} else {
		msg, err := jws.Parse([]byte(token))
		if err != nil {
			return nil, fmt.Errorf("failed to parse id token: %w", err)
		}
		payload = msg.Payload()
	}

	var claims IDTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}

	now := v.now()
	if claims.Expiry > 0 && now.After(time.Unix(claims.Expiry, 0).Add(clockSkew)) {
		return nil, ErrTokenExpired
	}
	if claims.NotBefore > 0 && now.Before(time.Unix(claims.NotBefore, 0).Add(-clockSkew)) {
		return nil, ErrTokenNotYetValid
	}

	return &claims, nil
}
