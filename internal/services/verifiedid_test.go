package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuanceRequest() *IssuanceRequest {
	return &IssuanceRequest{
		Authority:     "did:web:issuer.example.com",
		IncludeQRCode: true,
		Registration:  Registration{ClientName: "Verified ID Demo"},
		Callback: Callback{
			URL:     "https://issuer.example.com/api/request-callback",
			State:   "8d5a1c2e-5a0e-4a51-9d55-0c4f3c1b2a11",
			Headers: map[string]string{"api-key": "secret"},
		},
		Type:     "VerifiedEmployee",
		Manifest: "https://verifiedid.did.msidentity.com/v1.0/tenants/t/verifiableCredentials/contracts/c/manifest",
		Pin:      &Pin{Value: "1234", Length: 4},
		Claims:   map[string]string{"displayName": "Jane Doe"},
	}
}

func testPresentationRequest() *PresentationRequest {
	return &PresentationRequest{
		Authority:      "did:web:verifier.example.com",
		IncludeQRCode:  true,
		IncludeReceipt: true,
		Registration:   Registration{ClientName: "Verified ID Demo", Purpose: "To prove your identity"},
		Callback: Callback{
			URL:   "https://verifier.example.com/api/verification-callback",
			State: "f2c7a0c6-2c43-4c1c-9bb0-6c6e8b8f0f31",
		},
		RequestedCredentials: []RequestedCredential{{
			Type:            "VerifiedEmployee",
			AcceptedIssuers: []string{"did:web:issuer.example.com"},
			Configuration: &CredentialConfiguration{Validation: Validation{
				ValidateLinkedDomain: true,
				FaceCheck:            &FaceCheck{SourcePhotoClaimName: "photo", MatchConfidenceThreshold: 70},
			}},
		}},
	}
}

func TestRequestServiceClient_CreateIssuanceRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/createIssuanceRequest", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "did:web:issuer.example.com", body["authority"])
		assert.Equal(t, "VerifiedEmployee", body["type"])

		callback := body["callback"].(map[string]any)
		assert.Equal(t, "8d5a1c2e-5a0e-4a51-9d55-0c4f3c1b2a11", callback["state"])
		assert.Equal(t, map[string]any{"api-key": "secret"}, callback["headers"])

		pin := body["pin"].(map[string]any)
		assert.Equal(t, "1234", pin["value"])
		assert.EqualValues(t, 4, pin["length"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"requestId":"req-1","url":"openid-vc://?request_uri=https://x","expiry":1700000000,"qrCode":"data:image/png;base64,AAA"}`))
	}))
	defer srv.Close()

	c := NewRequestServiceClient(srv.URL, "scope", 5*time.Second, staticTokens("tok"))

	resp, err := c.CreateIssuanceRequest(context.Background(), testIssuanceRequest())
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "openid-vc://?request_uri=https://x", resp.URL)
	assert.Equal(t, int64(1700000000), resp.Expiry)
	assert.Equal(t, "data:image/png;base64,AAA", resp.QRCode)
}

func TestRequestServiceClient_CreatePresentationRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/createPresentationRequest", r.URL.Path)

		var body PresentationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.RequestedCredentials, 1)
		require.NotNil(t, body.RequestedCredentials[0].Configuration)
		assert.Equal(t, "photo", body.RequestedCredentials[0].Configuration.Validation.FaceCheck.SourcePhotoClaimName)
		assert.True(t, body.IncludeReceipt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"requestId":"req-2","url":"openid-vc://?request_uri=https://y","expiry":1700000300}`))
	}))
	defer srv.Close()

	c := NewRequestServiceClient(srv.URL, "scope", 5*time.Second, staticTokens("tok"))

	resp, err := c.CreatePresentationRequest(context.Background(), testPresentationRequest())
	require.NoError(t, err)
	assert.Equal(t, "req-2", resp.RequestID)
	assert.Empty(t, resp.QRCode)
}

func TestRequestServiceClient_VendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{
			"requestId": "9b2b3c4d",
			"date": "Mon, 16 Oct 2026 10:00:00 GMT",
			"error": {
				"code": "badRequest",
				"message": "The request is invalid.",
				"innererror": {
					"code": "badOrMissingField",
					"message": "The manifest URL is not valid.",
					"target": "manifest"
				}
			}
		}`))
	}))
	defer srv.Close()

	c := NewRequestServiceClient(srv.URL, "scope", 5*time.Second, staticTokens("tok"))

	_, err := c.CreateIssuanceRequest(context.Background(), testIssuanceRequest())
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, OperationCreateIssuanceRequest, upstreamErr.Operation)
	assert.Equal(t, http.StatusBadRequest, upstreamErr.StatusCode)
	assert.Equal(t, "badRequest", upstreamErr.Code)
	assert.Equal(t, "badOrMissingField", upstreamErr.InnerCode)
	assert.Equal(t, "manifest", upstreamErr.Target)
	assert.Equal(t, "9b2b3c4d", upstreamErr.RequestID)
	assert.Equal(t, "The request is invalid. The manifest URL is not valid.", upstreamErr.Error())
}

func TestRequestServiceClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expiry":1700000000}`))
	}))
	defer srv.Close()

	c := NewRequestServiceClient(srv.URL, "scope", 5*time.Second, staticTokens("tok"))

	_, err := c.CreatePresentationRequest(context.Background(), testPresentationRequest())
	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Contains(t, upstreamErr.Error(), "missing requestId")
}

func TestRequestServiceClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewRequestServiceClient(url, "scope", time.Second, staticTokens("tok"))

	_, err := c.CreateIssuanceRequest(context.Background(), testIssuanceRequest())
	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Zero(t, upstreamErr.StatusCode)
}

func TestRequestServiceClient_TokenFailure(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewRequestServiceClient(srv.URL, "scope", time.Second, failingTokens{})

	_, err := c.CreateIssuanceRequest(context.Background(), testIssuanceRequest())
	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.False(t, called, "platform must not be called without a token")
}

func TestRequestServiceClient_InvalidDocument(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IssuanceRequest)
	}{
		{"missing authority", func(r *IssuanceRequest) { r.Authority = "" }},
		{"missing state", func(r *IssuanceRequest) { r.Callback.State = "" }},
		{"callback not a url", func(r *IssuanceRequest) { r.Callback.URL = "not a url" }},
		{"non numeric pin", func(r *IssuanceRequest) { r.Pin = &Pin{Value: "12ab", Length: 4} }},
		{"missing manifest", func(r *IssuanceRequest) { r.Manifest = "" }},
	}

	c := NewRequestServiceClient("http://127.0.0.1:1", "scope", time.Second, staticTokens("tok"))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testIssuanceRequest()
			tt.mutate(req)

			_, err := c.CreateIssuanceRequest(context.Background(), req)
			require.Error(t, err)

			var upstreamErr *UpstreamError
			assert.False(t, errors.As(err, &upstreamErr), "validation must fail before the call is made")
		})
	}

	t.Run("no requested credentials", func(t *testing.T) {
		req := testPresentationRequest()
		req.RequestedCredentials = nil
		_, err := c.CreatePresentationRequest(context.Background(), req)
		require.Error(t, err)
	})
}
