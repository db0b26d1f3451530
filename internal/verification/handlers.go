package verification

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/verifiedid-demo/internal/api"
	"github.com/information-sharing-networks/verifiedid-demo/internal/logger"
	"github.com/information-sharing-networks/verifiedid-demo/internal/metrics"
	"github.com/information-sharing-networks/verifiedid-demo/internal/services"
	"github.com/information-sharing-networks/verifiedid-demo/internal/tracker"
)

// VerifyCredentialRequest is the optional body of POST /api/verify-credential
type VerifyCredentialRequest struct {
	IncludeFaceCheck bool `json:"includeFaceCheck" example:"false"`
}

// VerifyCredentialResponse is returned by POST /api/verify-credential
type VerifyCredentialResponse struct {
	Success          bool   `json:"success" example:"true"`
	RequestID        string `json:"requestId" example:"f2c7a0c6-2c43-4c1c-9bb0-6c6e8b8f0f31"`
	URL              string `json:"url" example:"openid-vc://?request_uri=https://verifiedid.did.msidentity.com/v1.0/tenants/..."`
	Expiry           int64  `json:"expiry" example:"1760612400"`
	QRCode           string `json:"qrCode,omitempty" example:"data:image/png;base64,iVBORw0KGgo..."`
	FaceCheckEnabled bool   `json:"faceCheckEnabled" example:"false"`
}

// Handler serves the verifier endpoints.
type Handler struct {
	cfg      Config
	store    tracker.Store
	requests services.RequestService
	metrics  metrics.Recorder
}

func NewHandler(cfg Config, store tracker.Store, requests services.RequestService, recorder metrics.Recorder) *Handler {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Handler{
		cfg:      cfg,
		store:    store,
		requests: requests,
		metrics:  recorder,
	}
}

// HandleVerifyCredential godoc
//
//	@Summary		Create a presentation request
//	@Description	Creates a presentation request for the configured credential type, optionally with a face check.
//	@Description	The returned requestId is polled with GET /api/request-status/{id}.
//	@Tags			Verification
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyCredentialRequest	false	"Presentation options"
//	@Success		200		{object}	VerifyCredentialResponse
//	@Failure		400		{object}	api.ErrorResponse	"malformed body"
//	@Failure		500		{object}	api.ErrorResponse	"token acquisition or platform call failed"
//	@Router			/api/verify-credential [post]
func (h *Handler) HandleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqLogger := logger.ContextRequestLogger(ctx)

	var req VerifyCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "Invalid request body"))
		return
	}

	// the tracked request must exist before the platform can call back with its id
	id, err := h.store.Create(ctx, tracker.KindVerification, map[string]any{
		"includeFaceCheck": req.IncludeFaceCheck,
		"credentialType":   h.cfg.CredentialType,
	})
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to track request"))
		return
	}
	logger.ContextWithLogAttrs(ctx,
		slog.String("tracked_request_id", id),
		slog.Bool("face_check", req.IncludeFaceCheck))

	resp, err := h.requests.CreatePresentationRequest(ctx, BuildPresentationRequest(h.cfg, id, req.IncludeFaceCheck))
	if err != nil {
		h.metrics.IncUpstreamError(services.OperationCreatePresentationRequest)
		if markErr := tracker.MarkFailed(ctx, h.store, id, err); markErr != nil {
			reqLogger.Error("failed to mark request as failed", slog.String("error", markErr.Error()))
		}
		api.RespondWithErrorResponse(w, r, api.WrapUpstreamError(err, "Failed to create presentation request"))
		return
	}

	h.metrics.IncRequestCreated(string(tracker.KindVerification))
	reqLogger.Info("presentation request created",
		slog.String("tracked_request_id", id),
		slog.String("platform_request_id", resp.RequestID))

	api.RespondWithJSONPayload(w, http.StatusOK, VerifyCredentialResponse{
		Success:          true,
		RequestID:        id,
		URL:              resp.URL,
		Expiry:           resp.Expiry,
		QRCode:           resp.QRCode,
		FaceCheckEnabled: req.IncludeFaceCheck,
	})
}
