package services

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenProvider returns bearer tokens for the application identity.
type TokenProvider interface {
	// Token returns an access token for scope or an *AuthenticationError.
	Token(ctx context.Context, scope string) (string, error)
}

// ClientCredentialsTokenProvider acquires app-only tokens with the OAuth 2.0 client credentials grant.
//
// One token source is kept per scope; each caches its token until shortly before expiry.
type ClientCredentialsTokenProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

var _ TokenProvider = (*ClientCredentialsTokenProvider)(nil)

// NewClientCredentialsTokenProvider creates a token provider for the app registration.
// httpClient is used for token requests, its timeout bounds each fetch.
func NewClientCredentialsTokenProvider(tokenURL, clientID, clientSecret string, httpClient *http.Client) *ClientCredentialsTokenProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClientCredentialsTokenProvider{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		sources:      make(map[string]oauth2.TokenSource),
	}
}

// Token returns a cached token, fetching a new one when it is missing or about to expire.
//
// ctx is not passed to the fetch: the token source is shared by all requests and bound to a
// background context, so a fetch is bounded by the HTTP client timeout rather than by the
// caller's request.
func (p *ClientCredentialsTokenProvider) Token(ctx context.Context, scope string) (string, error) {
	token, err := p.source(scope).Token()
	if err != nil {
		return "", newAuthenticationError(scope, err)
	}
	return token.AccessToken, nil
}

// source returns the cached token source for scope.
//
// The source outlives the request that created it, so it is bound to a background
// context carrying only the HTTP client.
func (p *ClientCredentialsTokenProvider) source(scope string) oauth2.TokenSource {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ts, ok := p.sources[scope]; ok {
		return ts
	}

	conf := &clientcredentials.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		TokenURL:     p.tokenURL,
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, p.httpClient)
	ts := conf.TokenSource(ctx)
	p.sources[scope] = ts
	return ts
}
