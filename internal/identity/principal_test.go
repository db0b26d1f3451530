package identity

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFromRequest(t *testing.T) {
	fullPrincipal, err := EncodeClientPrincipal("aad", []Claim{
		{Type: claimObjectID, Value: "00000000-1111-2222-3333-444444444444"},
		{Type: claimName, Value: "Jane Doe"},
		{Type: claimPreferredName, Value: "jane@contoso.com"},
		{Type: claimGivenName, Value: "Jane"},
		{Type: claimSurname, Value: "Doe"},
	})
	if err != nil {
		t.Fatalf("failed to encode principal: %v", err)
	}

	staticWebAppsPrincipal := base64.StdEncoding.EncodeToString(
		[]byte(`{"identityProvider":"aad","userId":"u-123","userDetails":"jane@contoso.com"}`))

	tests := []struct {
		name      string
		headers   map[string]string
		wantErr   error
		wantID    string
		wantName  string
		wantEmail string
	}{
		{
			name:      "client principal with claims",
			headers:   map[string]string{HeaderPrincipal: fullPrincipal},
			wantID:    "00000000-1111-2222-3333-444444444444",
			wantName:  "Jane Doe",
			wantEmail: "jane@contoso.com",
		},
		{
			name:      "userId and userDetails shape",
			headers:   map[string]string{HeaderPrincipal: staticWebAppsPrincipal},
			wantID:    "u-123",
			wantName:  "jane@contoso.com",
			wantEmail: "jane@contoso.com",
		},
		{
			name: "id and name headers only",
			headers: map[string]string{
				HeaderPrincipalID:   "u-456",
				HeaderPrincipalName: "bob@contoso.com",
			},
			wantID:    "u-456",
			wantName:  "bob@contoso.com",
			wantEmail: "bob@contoso.com",
		},
		{
			name:    "no headers",
			headers: map[string]string{},
			wantErr: ErrNoPrincipal,
		},
		{
			name:    "not base64",
			headers: map[string]string{HeaderPrincipal: "%%%not-base64%%%"},
			wantErr: ErrMalformedPrincipal,
		},
		{
			name:    "not json",
			headers: map[string]string{HeaderPrincipal: base64.StdEncoding.EncodeToString([]byte("hello"))},
			wantErr: ErrMalformedPrincipal,
		},
		{
			name:    "principal without an id",
			headers: map[string]string{HeaderPrincipal: base64.StdEncoding.EncodeToString([]byte(`{"claims":[]}`))},
			wantErr: ErrNoPrincipal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			p, err := FromRequest(r)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.ID != tt.wantID {
				t.Errorf("got id %q, want %q", p.ID, tt.wantID)
			}
			if p.Name != tt.wantName {
				t.Errorf("got name %q, want %q", p.Name, tt.wantName)
			}
			if p.Email != tt.wantEmail {
				t.Errorf("got email %q, want %q", p.Email, tt.wantEmail)
			}
		})
	}
}

func TestFromRequest_NamesAndToken(t *testing.T) {
	encoded, _ := EncodeClientPrincipal("aad", []Claim{
		{Type: claimOID, Value: "u-1"},
		{Type: claimShortGivenName, Value: "Jane"},
		{Type: claimShortFamilyName, Value: "Doe"},
	})

	r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	r.Header.Set(HeaderPrincipal, encoded)
	r.Header.Set(HeaderIDToken, "header.payload.signature")

	p, err := FromRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.GivenName() != "Jane" || p.Surname() != "Doe" {
		t.Errorf("got given name %q surname %q", p.GivenName(), p.Surname())
	}
	if p.IDToken != "header.payload.signature" {
		t.Errorf("id token not captured: %q", p.IDToken)
	}
	// no name claim: falls back to the id
	if p.Name != "u-1" {
		t.Errorf("got name %q, want the id", p.Name)
	}
}

func TestPrincipalContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := PrincipalFromContext(r.Context()); ok {
		t.Fatal("expected no principal on a bare context")
	}

	ctx := ContextWithPrincipal(r.Context(), &Principal{ID: "u-1"})
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.ID != "u-1" {
		t.Errorf("got %+v, %v", p, ok)
	}
}
