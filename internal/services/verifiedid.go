package services

// verifiedid.go is the client for the Microsoft Entra Verified ID Request Service REST API.

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator"
	"github.com/go-resty/resty/v2"
)

const (
	OperationCreateIssuanceRequest     = "createIssuanceRequest"
	OperationCreatePresentationRequest = "createPresentationRequest"
)

// Registration is the display information shown by the wallet
type Registration struct {
	ClientName string `json:"clientName" validate:"required"`
	Purpose    string `json:"purpose,omitempty"`
}

// Callback tells the platform where to report status changes.
// State is echoed back in every callback and is the tracked request id.
type Callback struct {
	URL     string            `json:"url" validate:"required,url"`
	State   string            `json:"state" validate:"required"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Pin is the optional second factor the user types into the wallet during issuance
type Pin struct {
	Value  string `json:"value" validate:"required,numeric"`
	Length int    `json:"length" validate:"gte=1,lte=16"`
}

// IssuanceRequest is the body of POST /createIssuanceRequest
type IssuanceRequest struct {
	Authority     string            `json:"authority" validate:"required"`
	IncludeQRCode bool              `json:"includeQRCode"`
	Registration  Registration      `json:"registration"`
	Callback      Callback          `json:"callback"`
	Type          string            `json:"type" validate:"required"`
	Manifest      string            `json:"manifest" validate:"required,url"`
	Pin           *Pin              `json:"pin,omitempty"`
	Claims        map[string]string `json:"claims,omitempty"`
}

// FaceCheck asks the platform to compare the holder's face with the photo claim in the credential
type FaceCheck struct {
	SourcePhotoClaimName     string `json:"sourcePhotoClaimName" validate:"required"`
	MatchConfidenceThreshold int    `json:"matchConfidenceThreshold" validate:"gte=50,lte=100"`
}

type Validation struct {
	AllowRevoked         bool       `json:"allowRevoked"`
	ValidateLinkedDomain bool       `json:"validateLinkedDomain"`
	FaceCheck            *FaceCheck `json:"faceCheck,omitempty"`
}

type CredentialConfiguration struct {
	Validation Validation `json:"validation"`
}

// RequestedCredential describes one credential the verifier asks the wallet to present
type RequestedCredential struct {
	Type            string                   `json:"type" validate:"required"`
	Purpose         string                   `json:"purpose,omitempty"`
	AcceptedIssuers []string                 `json:"acceptedIssuers,omitempty"`
	Configuration   *CredentialConfiguration `json:"configuration,omitempty"`
}

// PresentationRequest is the body of POST /createPresentationRequest
type PresentationRequest struct {
	Authority            string                `json:"authority" validate:"required"`
	IncludeQRCode        bool                  `json:"includeQRCode"`
	IncludeReceipt       bool                  `json:"includeReceipt"`
	Registration         Registration          `json:"registration"`
	Callback             Callback              `json:"callback"`
	RequestedCredentials []RequestedCredential `json:"requestedCredentials" validate:"required,min=1,dive"`
}

// CreateRequestResponse is returned by both create operations
type CreateRequestResponse struct {
	RequestID string `json:"requestId"`

	// URL is the openid-vc:// deep link the wallet opens
	URL string `json:"url"`

	// Expiry is a unix timestamp in seconds
	Expiry int64 `json:"expiry"`

	// QRCode is a data: URL with a PNG rendering of URL, present when includeQRCode was set
	QRCode string `json:"qrCode,omitempty"`
}

// requestServiceError is the error body returned by the Request Service
type requestServiceError struct {
	RequestID string `json:"requestId"`
	Date      string `json:"date"`
	Error     struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		InnerError struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Target  string `json:"target"`
		} `json:"innererror"`
	} `json:"error"`
}

// RequestService creates issuance and presentation requests on the credential platform.
type RequestService interface {
	CreateIssuanceRequest(ctx context.Context, req *IssuanceRequest) (*CreateRequestResponse, error)
	CreatePresentationRequest(ctx context.Context, req *PresentationRequest) (*CreateRequestResponse, error)
}

// RequestServiceClient is the RequestService backed by the Verified ID REST API.
type RequestServiceClient struct {
	client   *resty.Client
	tokens   TokenProvider
	scope    string
	validate *validator.Validate
}

var _ RequestService = (*RequestServiceClient)(nil)

// NewRequestServiceClient creates a client for endpoint, e.g.
// https://verifiedid.did.msidentity.com/v1.0/verifiableCredentials.
// Each call is bounded by timeout and is not retried.
func NewRequestServiceClient(endpoint, scope string, timeout time.Duration, tokens TokenProvider) *RequestServiceClient {
	return &RequestServiceClient{
		client: resty.New().
			SetBaseURL(endpoint).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		tokens:   tokens,
		scope:    scope,
		validate: validator.New(),
	}
}

func (c *RequestServiceClient) CreateIssuanceRequest(ctx context.Context, req *IssuanceRequest) (*CreateRequestResponse, error) {
	return c.create(ctx, OperationCreateIssuanceRequest, req)
}

func (c *RequestServiceClient) CreatePresentationRequest(ctx context.Context, req *PresentationRequest) (*CreateRequestResponse, error) {
	return c.create(ctx, OperationCreatePresentationRequest, req)
}

func (c *RequestServiceClient) create(ctx context.Context, operation string, body any) (*CreateRequestResponse, error) {
	if err := c.validate.Struct(body); err != nil {
		return nil, fmt.Errorf("invalid %s document: %w", operation, err)
	}

	token, err := c.tokens.Token(ctx, c.scope)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&CreateRequestResponse{}).
		SetError(&requestServiceError{}).
		Post("/" + operation)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Err: err}
	}

	if resp.IsError() {
		upstreamErr := &UpstreamError{Operation: operation, StatusCode: resp.StatusCode()}
		if body, ok := resp.Error().(*requestServiceError); ok && body != nil {
			upstreamErr.RequestID = body.RequestID
			upstreamErr.Code = body.Error.Code
			upstreamErr.Message = body.Error.Message
			upstreamErr.InnerCode = body.Error.InnerError.Code
			upstreamErr.InnerMessage = body.Error.InnerError.Message
			upstreamErr.Target = body.Error.InnerError.Target
		}
		return nil, upstreamErr
	}

	result, ok := resp.Result().(*CreateRequestResponse)
	if !ok || result == nil || result.RequestID == "" || result.URL == "" {
		return nil, &UpstreamError{
			Operation:  operation,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("response is missing requestId or url: %s", string(resp.Body())),
		}
	}

	return result, nil
}
