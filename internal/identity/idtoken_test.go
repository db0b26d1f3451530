package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// signingKey returns a private RSA JWK with the kid set, and a JWKS document with its public half
func signingKey(t *testing.T, kid string) (jwk.Key, []byte) {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	priv, err := jwk.Import(raw)
	if err != nil {
		t.Fatalf("failed to import key: %v", err)
	}
	if err := priv.Set(jwk.KeyIDKey, kid); err != nil {
		t.Fatalf("failed to set kid: %v", err)
	}

	pub, err := jwk.PublicKeyOf(priv)
	if err != nil {
		t.Fatalf("failed to derive public key: %v", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatalf("failed to add key: %v", err)
	}
	jwks, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("failed to marshal key set: %v", err)
	}
	return priv, jwks
}

func signToken(t *testing.T, key jwk.Key, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to marshal claims: %v", err)
	}
	signed, err := jws.Sign(payload, jws.WithKey(jwa.RS256(), key))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

func TestIDTokenVerifier_WithoutJWKS(t *testing.T) {
	key, _ := signingKey(t, "k1")
	token := signToken(t, key, map[string]any{
		"oid":         "u-1",
		"name":        "Jane Doe",
		"given_name":  "Jane",
		"family_name": "Doe",
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	v, err := NewIDTokenVerifier(context.Background(), IDTokenVerifierConfig{}, discardLogger)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	claims, err := v.Claims(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.ObjectID != "u-1" || claims.GivenName != "Jane" || claims.FamilyName != "Doe" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestIDTokenVerifier_Expired(t *testing.T) {
	key, _ := signingKey(t, "k1")
	token := signToken(t, key, map[string]any{
		"oid": "u-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	v, _ := NewIDTokenVerifier(context.Background(), IDTokenVerifierConfig{}, discardLogger)

	if _, err := v.Claims(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("got %v, want ErrTokenExpired", err)
	}
}

func TestIDTokenVerifier_Malformed(t *testing.T) {
	v, _ := NewIDTokenVerifier(context.Background(), IDTokenVerifierConfig{}, discardLogger)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := v.Claims(context.Background(), token); err == nil {
			t.Errorf("expected an error for %q", token)
		}
	}
}

func TestIDTokenVerifier_WithJWKS(t *testing.T) {
	key, jwks := signingKey(t, "tenant-key-1")
	otherKey, _ := signingKey(t, "unknown-key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwks)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v, err := NewIDTokenVerifier(ctx, IDTokenVerifierConfig{
		JWKSURL:            srv.URL,
		MinRefreshInterval: time.Minute,
		MaxRefreshInterval: time.Hour,
		WaitReady:          true,
	}, discardLogger)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	t.Run("known key", func(t *testing.T) {
		token := signToken(t, key, map[string]any{"oid": "u-1", "name": "Jane Doe"})
		claims, err := v.Claims(ctx, token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if claims.Name != "Jane Doe" {
			t.Errorf("got name %q", claims.Name)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		token := signToken(t, otherKey, map[string]any{"oid": "u-1"})
		if _, err := v.Claims(ctx, token); err == nil {
			t.Error("expected verification to fail for a key not in the set")
		}
	})
}
