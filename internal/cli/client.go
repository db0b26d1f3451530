package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/information-sharing-networks/verifiedid-demo/internal/api"
	"github.com/information-sharing-networks/verifiedid-demo/internal/server/handlers"
	"github.com/information-sharing-networks/verifiedid-demo/internal/verification"
)

// ErrRequestNotFound is returned when the service does not know the tracked request id
var ErrRequestNotFound = errors.New("request not found")

// Client calls the public endpoints of the issuer and verifier services.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// RequestStatus returns the status document of a tracked request
func (c *Client) RequestStatus(ctx context.Context, id string) (*handlers.RequestStatusResponse, error) {
	var (
		result handlers.RequestStatusResponse
		apiErr api.ErrorResponse
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&result).
		SetError(&apiErr).
		Get("/api/request-status/{id}")
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return &result, nil
}

// VerifyCredential asks a verifier to create a presentation request
func (c *Client) VerifyCredential(ctx context.Context, includeFaceCheck bool) (*verification.VerifyCredentialResponse, error) {
	var (
		result verification.VerifyCredentialResponse
		apiErr api.ErrorResponse
	)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(verification.VerifyCredentialRequest{IncludeFaceCheck: includeFaceCheck}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/verify-credential")
	if err != nil {
		return nil, fmt.Errorf("verify request failed: %w", err)
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return &result, nil
}

func responseError(resp *resty.Response, apiErr *api.ErrorResponse) error {
	if apiErr.Error == "" {
		return fmt.Errorf("service returned HTTP %d", resp.StatusCode())
	}
	if apiErr.Message != "" && apiErr.Message != apiErr.Error {
		return fmt.Errorf("service returned HTTP %d: %s: %s", resp.StatusCode(), apiErr.Error, apiErr.Message)
	}
	return fmt.Errorf("service returned HTTP %d: %s", resp.StatusCode(), apiErr.Error)
}
