package issuance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/information-sharing-networks/verifiedid-demo/internal/api"
	"github.com/information-sharing-networks/verifiedid-demo/internal/identity"
	"github.com/information-sharing-networks/verifiedid-demo/internal/logger"
	"github.com/information-sharing-networks/verifiedid-demo/internal/metrics"
	"github.com/information-sharing-networks/verifiedid-demo/internal/profile"
	"github.com/information-sharing-networks/verifiedid-demo/internal/services"
	"github.com/information-sharing-networks/verifiedid-demo/internal/tracker"
)

// ProfileResolver returns the profile for the signed in user
type ProfileResolver interface {
	Resolve(ctx context.Context, principal *identity.Principal) (*profile.Profile, error)
}

// IssueCredentialResponse is returned by POST /api/issue-credential
type IssueCredentialResponse struct {
	Success   bool   `json:"success" example:"true"`
	RequestID string `json:"requestId" example:"8d5a1c2e-5a0e-4a51-9d55-0c4f3c1b2a11"`
	URL       string `json:"url" example:"openid-vc://?request_uri=https://verifiedid.did.msidentity.com/v1.0/tenants/..."`
	Expiry    int64  `json:"expiry" example:"1760612400"`
	QRCode    string `json:"qrCode,omitempty" example:"data:image/png;base64,iVBORw0KGgo..."`

	// Pin is shown to the user, who types it into the wallet. Empty when no PIN is required.
	Pin string `json:"pin,omitempty" example:"4821"`
}

// UserResponse is returned by GET /api/user
type UserResponse struct {
	Success bool             `json:"success" example:"true"`
	User    *profile.Profile `json:"user"`
}

// Handler serves the issuer endpoints.
type Handler struct {
	cfg       Config
	store     tracker.Store
	requests  services.RequestService
	profiles  ProfileResolver
	directory services.Directory
	metrics   metrics.Recorder
}

// NewHandler creates the issuer handler. directory may be nil, in which case no photo is looked up.
func NewHandler(cfg Config, store tracker.Store, requests services.RequestService, profiles ProfileResolver, directory services.Directory, recorder metrics.Recorder) *Handler {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Handler{
		cfg:       cfg,
		store:     store,
		requests:  requests,
		profiles:  profiles,
		directory: directory,
		metrics:   recorder,
	}
}

// HandleIssueCredential godoc
//
//	@Summary		Create an issuance request
//	@Description	Creates a credential issuance request for the signed in user.
//	@Description	The returned requestId is polled with GET /api/request-status/{id}.
//	@Tags			Issuance
//	@Produce		json
//	@Param			X-MS-CLIENT-PRINCIPAL	header		string	true	"Identity injected by the hosting platform"
//	@Success		200						{object}	IssueCredentialResponse
//	@Failure		401						{object}	api.ErrorResponse	"no identity header"
//	@Failure		500						{object}	api.ErrorResponse	"token acquisition or platform call failed"
//	@Router			/api/issue-credential [post]
func (h *Handler) HandleIssueCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqLogger := logger.ContextRequestLogger(ctx)

	principal, ok := identity.PrincipalFromContext(ctx)
	if !ok {
		api.RespondWithErrorResponse(w, r, api.NewUnauthenticatedError("authentication required"))
		return
	}

	userProfile, err := h.profiles.Resolve(ctx, principal)
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to resolve user profile"))
		return
	}

	claims := BuildClaims(userProfile, h.lookupPhoto(ctx, principal.ID))

	pin, err := GeneratePIN(h.cfg.PinLength)
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to generate pin"))
		return
	}

	// the tracked request must exist before the platform can call back with its id
	id, err := h.store.Create(ctx, tracker.KindIssuance, map[string]any{
		"userId":         principal.ID,
		"displayName":    userProfile.DisplayName,
		"profileSource":  userProfile.Source,
		"credentialType": h.cfg.CredentialType,
		"pinRequired":    pin != "",
	})
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to track request"))
		return
	}
	logger.ContextWithLogAttrs(ctx, slog.String("tracked_request_id", id))

	resp, err := h.requests.CreateIssuanceRequest(ctx, BuildIssuanceRequest(h.cfg, id, claims, pin))
	if err != nil {
		h.metrics.IncUpstreamError(services.OperationCreateIssuanceRequest)
		if markErr := tracker.MarkFailed(ctx, h.store, id, err); markErr != nil {
			reqLogger.Error("failed to mark request as failed", slog.String("error", markErr.Error()))
		}
		api.RespondWithErrorResponse(w, r, api.WrapUpstreamError(err, "Failed to create issuance request"))
		return
	}

	h.metrics.IncRequestCreated(string(tracker.KindIssuance))
	reqLogger.Info("issuance request created",
		slog.String("tracked_request_id", id),
		slog.String("platform_request_id", resp.RequestID),
		slog.Int("claims", len(claims)))

	api.RespondWithJSONPayload(w, http.StatusOK, IssueCredentialResponse{
		Success:   true,
		RequestID: id,
		URL:       resp.URL,
		Expiry:    resp.Expiry,
		QRCode:    resp.QRCode,
		Pin:       pin,
	})
}

// HandleGetUser godoc
//
//	@Summary		Get the signed in user
//	@Description	Returns the resolved profile. Falls back to the identity header when the directory is unavailable.
//	@Tags			Issuance
//	@Produce		json
//	@Success		200	{object}	UserResponse
//	@Failure		401	{object}	api.ErrorResponse
//	@Router			/api/user [get]
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		api.RespondWithErrorResponse(w, r, api.NewUnauthenticatedError("authentication required"))
		return
	}

	userProfile, err := h.profiles.Resolve(r.Context(), principal)
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to resolve user profile"))
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, UserResponse{Success: true, User: userProfile})
}

// HandleGetUserPhoto godoc
//
//	@Summary	Get the signed in user's photo
//	@Tags		Issuance
//	@Produce	image/jpeg
//	@Success	200	{file}		binary
//	@Failure	401	{object}	api.ErrorResponse
//	@Failure	404	{object}	api.ErrorResponse	"no photo available"
//	@Router		/api/user/photo [get]
func (h *Handler) HandleGetUserPhoto(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		api.RespondWithErrorResponse(w, r, api.NewUnauthenticatedError("authentication required"))
		return
	}

	photo := h.lookupPhoto(r.Context(), principal.ID)
	if photo == nil {
		api.RespondWithErrorResponse(w, r, api.NewNotFoundError("Photo not found"))
		return
	}

	w.Header().Set("Content-Type", photo.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(photo.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(photo.Data); err != nil {
		logger.ContextRequestLogger(r.Context()).Warn("failed to write photo", slog.String("error", err.Error()))
	}
}

// lookupPhoto returns the user's photo or nil. Lookup failures are not fatal.
func (h *Handler) lookupPhoto(ctx context.Context, userID string) *services.Photo {
	if h.directory == nil {
		return nil
	}

	photo, err := h.directory.GetPhoto(ctx, userID)
	if err != nil {
		if !errors.Is(err, services.ErrPhotoNotFound) {
			logger.ContextRequestLogger(ctx).Warn("photo lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	return photo
}
