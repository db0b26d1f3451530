package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/verifiedid-demo/internal/api"
	"github.com/information-sharing-networks/verifiedid-demo/internal/tracker"
)

// statusMessages are shown by the browser while it polls
var statusMessages = map[string]string{
	tracker.StatusRequestCreated:       "Waiting for the QR code to be scanned",
	tracker.StatusRequestRetrieved:     "QR code scanned, waiting for the wallet to respond",
	tracker.StatusRequestFailed:        "The credential platform rejected the request",
	tracker.StatusIssuanceSuccessful:   "Credential issued",
	tracker.StatusIssuanceError:        "Credential issuance failed",
	tracker.StatusPresentationVerified: "Credential verified",
	tracker.StatusPresentationError:    "Credential verification failed",
}

// RequestStatusResponse is returned by GET /api/request-status/{id}
type RequestStatusResponse struct {
	Success   bool         `json:"success" example:"true"`
	RequestID string       `json:"requestId" example:"8d5a1c2e-5a0e-4a51-9d55-0c4f3c1b2a11"`
	Status    string       `json:"status" example:"request_retrieved"`
	Type      tracker.Kind `json:"type" example:"issuance"`
	Message   string       `json:"message,omitempty" example:"QR code scanned, waiting for the wallet to respond"`
	Created   time.Time    `json:"created" example:"2026-01-28T10:00:00Z"`
	Updated   *time.Time   `json:"updated,omitempty" example:"2026-01-28T10:00:05Z"`
	Terminal  bool         `json:"terminal" example:"false"`

	CredentialType string `json:"credentialType,omitempty" example:"VerifiedEmployee"`

	// issuance only
	PinRequired *bool `json:"pinRequired,omitempty" example:"true"`

	// verification only
	FaceCheckEnabled *bool `json:"faceCheckEnabled,omitempty" example:"false"`

	// Result is the outcome reported by the last callback that carried one
	Result map[string]any `json:"result,omitempty"`
}

// HandleRequestStatus godoc
//
//	@Summary		Get the status of a tracked request
//	@Description	Polled by the browser after an issuance or presentation request has been created.
//	@Description	The status is the last value reported by the credential platform.
//	@Tags			Common
//	@Produce		json
//	@Param			id	path		string	true	"Tracked request id"
//	@Success		200	{object}	RequestStatusResponse
//	@Failure		404	{object}	api.ErrorResponse	"unknown or expired id"
//	@Router			/api/request-status/{id} [get]
func HandleRequestStatus(store tracker.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		tr, err := store.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, tracker.ErrNotFound) {
				api.RespondWithErrorResponse(w, r, api.NewNotFoundError("Request not found"))
				return
			}
			api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to read tracked request"))
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		api.RespondWithJSONPayload(w, http.StatusOK, newRequestStatusResponse(tr))
	}
}

func newRequestStatusResponse(tr *tracker.TrackedRequest) RequestStatusResponse {
	resp := RequestStatusResponse{
		Success:   true,
		RequestID: tr.ID,
		Status:    tr.Status,
		Type:      tr.Kind,
		Message:   statusMessages[tr.Status],
		Created:   tr.CreatedAt,
		Updated:   tr.UpdatedAt,
		Terminal:  tracker.IsTerminal(tr.Status),
		Result:    tr.Result,
	}

	if v, ok := tr.Metadata["credentialType"].(string); ok {
		resp.CredentialType = v
	}

	switch tr.Kind {
	case tracker.KindIssuance:
		if v, ok := tr.Metadata["pinRequired"].(bool); ok {
			resp.PinRequired = &v
		}
	case tracker.KindVerification:
		faceCheck, _ := tr.Metadata["includeFaceCheck"].(bool)
		resp.FaceCheckEnabled = &faceCheck
	}
	return resp
}
