// Package identity reads the identity the hosting platform (App Service authentication) injects
// into each request.
//
// The platform authenticates the browser and forwards these headers to the application:
//
//	X-MS-CLIENT-PRINCIPAL       base64 JSON {auth_typ, name_typ, role_typ, claims[{typ, val}]}
//	X-MS-CLIENT-PRINCIPAL-ID    object id of the signed in user
//	X-MS-CLIENT-PRINCIPAL-NAME  user principal name
//	X-MS-TOKEN-AAD-ID-TOKEN     the raw ID token issued to the user
//
// The headers are trusted as is; the platform strips any client supplied copies.
package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	HeaderPrincipal     = "X-MS-CLIENT-PRINCIPAL"
	HeaderPrincipalID   = "X-MS-CLIENT-PRINCIPAL-ID"
	HeaderPrincipalName = "X-MS-CLIENT-PRINCIPAL-NAME"
	HeaderIDToken       = "X-MS-TOKEN-AAD-ID-TOKEN"
)

// claim types used to resolve principal fields
const (
	claimObjectID        = "http://schemas.microsoft.com/identity/claims/objectidentifier"
	claimOID             = "oid"
	claimName            = "name"
	claimNameIdentifier  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	claimEmailAddress    = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	claimPreferredName   = "preferred_username"
	claimGivenName       = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname"
	claimSurname         = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/surname"
	claimUPN             = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/upn"
	claimShortGivenName  = "given_name"
	claimShortFamilyName = "family_name"
)

var (
	// ErrNoPrincipal is returned when the request carries no identity headers
	ErrNoPrincipal = errors.New("no authenticated principal on request")

	// ErrMalformedPrincipal is returned when X-MS-CLIENT-PRINCIPAL cannot be decoded
	ErrMalformedPrincipal = errors.New("malformed client principal header")
)

// Claim is one typed claim from the client principal
type Claim struct {
	Type  string `json:"typ"`
	Value string `json:"val"`
}

// clientPrincipal is the decoded X-MS-CLIENT-PRINCIPAL document.
// Static Web Apps uses userId/userDetails instead of claims, both shapes are accepted.
type clientPrincipal struct {
	AuthType    string  `json:"auth_typ"`
	NameType    string  `json:"name_typ"`
	RoleType    string  `json:"role_typ"`
	Claims      []Claim `json:"claims"`
	UserID      string  `json:"userId"`
	UserDetails string  `json:"userDetails"`
}

// Principal is the authenticated user as seen by the application.
type Principal struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email,omitempty"`
	AuthType string  `json:"authType,omitempty"`
	Claims   []Claim `json:"claims,omitempty"`

	// IDToken is the raw token from X-MS-TOKEN-AAD-ID-TOKEN, empty when not forwarded
	IDToken string `json:"-"`
}

// Claim returns the first value for the claim type, or ""
func (p *Principal) Claim(typ string) string {
	for _, c := range p.Claims {
		if c.Type == typ {
			return c.Value
		}
	}
	return ""
}

// GivenName returns the given name claim, if the platform forwarded one
func (p *Principal) GivenName() string {
	return firstNonEmpty(p.Claim(claimGivenName), p.Claim(claimShortGivenName))
}

// Surname returns the family name claim, if the platform forwarded one
func (p *Principal) Surname() string {
	return firstNonEmpty(p.Claim(claimSurname), p.Claim(claimShortFamilyName))
}

// FromRequest builds the principal from the platform identity headers.
//
// X-MS-CLIENT-PRINCIPAL is preferred; the -ID and -NAME headers fill any gaps and are
// sufficient on their own. Returns ErrNoPrincipal when no usable id is present.
func FromRequest(r *http.Request) (*Principal, error) {
	p := &Principal{
		IDToken: strings.TrimSpace(r.Header.Get(HeaderIDToken)),
	}

	if encoded := strings.TrimSpace(r.Header.Get(HeaderPrincipal)); encoded != "" {
		cp, err := decodeClientPrincipal(encoded)
		if err != nil {
			return nil, err
		}
		p.AuthType = cp.AuthType
		p.Claims = cp.Claims
		p.ID = firstNonEmpty(cp.UserID, p.Claim(claimObjectID), p.Claim(claimOID))
		p.Name = firstNonEmpty(cp.UserDetails, p.nameFromClaims(cp.NameType))
		p.Email = firstNonEmpty(p.Claim(claimEmailAddress), p.Claim(claimPreferredName), p.Claim(claimUPN))
	}

	p.ID = firstNonEmpty(p.ID, strings.TrimSpace(r.Header.Get(HeaderPrincipalID)))
	p.Name = firstNonEmpty(p.Name, strings.TrimSpace(r.Header.Get(HeaderPrincipalName)))

	if p.ID == "" {
		return nil, ErrNoPrincipal
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Email == "" && strings.Contains(p.Name, "@") {
		p.Email = p.Name
	}
	return p, nil
}

func (p *Principal) nameFromClaims(nameType string) string {
	if nameType != "" {
		if v := p.Claim(nameType); v != "" {
			return v
		}
	}
	return firstNonEmpty(p.Claim(claimName), p.Claim(claimNameIdentifier))
}

func decodeClientPrincipal(encoded string) (*clientPrincipal, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// some proxies strip the padding
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPrincipal, err)
		}
	}

	var cp clientPrincipal
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPrincipal, err)
	}
	return &cp, nil
}

// EncodeClientPrincipal produces an X-MS-CLIENT-PRINCIPAL header value.
// Used by tests and local development tooling to simulate the hosting platform.
func EncodeClientPrincipal(authType string, claims []Claim) (string, error) {
	raw, err := json.Marshal(clientPrincipal{
		AuthType: authType,
		NameType: claimName,
		RoleType: "http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
		Claims:   claims,
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

type contextKey struct{}

// ContextWithPrincipal stores the principal for downstream handlers
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFromContext returns the principal stored by the RequireIdentity middleware
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok && p != nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
