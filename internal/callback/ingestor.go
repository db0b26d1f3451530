package callback

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/verifiedid-demo/internal/api"
	"github.com/information-sharing-networks/verifiedid-demo/internal/logger"
	"github.com/information-sharing-networks/verifiedid-demo/internal/metrics"
	"github.com/information-sharing-networks/verifiedid-demo/internal/tracker"
)

// APIKeyHeader is the callback header carrying the shared key
const APIKeyHeader = "api-key"

// AckResponse is the body returned for every accepted callback
type AckResponse struct {
	Message string `json:"message" example:"Callback received"`
}

// Ingestor applies platform callbacks to the request tracker.
type Ingestor struct {
	kind    tracker.Kind
	store   tracker.Store
	metrics metrics.Recorder

	// apiKey is empty when callbacks are not authenticated
	apiKey string
}

func NewIngestor(kind tracker.Kind, store tracker.Store, recorder metrics.Recorder, apiKey string) *Ingestor {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Ingestor{
		kind:    kind,
		store:   store,
		metrics: recorder,
		apiKey:  apiKey,
	}
}

func (i *Ingestor) ackMessage() string {
	if i.kind == tracker.KindVerification {
		return "Verification callback received"
	}
	return "Callback received"
}

// HandleCallback godoc
//
//	@Summary		Credential platform callback
//	@Description	Receives status updates from the credential platform. The state field is the tracked request id.
//	@Description	Always acknowledged with 200, including for unknown state values and malformed bodies.
//	@Tags			Callbacks
//	@Accept			json
//	@Produce		json
//	@Param			api-key	header		string	false	"Shared key, required when CALLBACK_API_KEY is set"
//	@Success		200		{object}	AckResponse
//	@Failure		401		{object}	api.ErrorResponse	"api key missing or wrong"
//	@Router			/api/request-callback [post]
//	@Router			/api/verification-callback [post]
func (i *Ingestor) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqLogger := logger.ContextRequestLogger(ctx)

	if i.apiKey != "" {
		got := r.Header.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(i.apiKey)) != 1 {
			api.RespondWithErrorResponse(w, r, api.NewForbiddenError("invalid or missing callback api key"))
			return
		}
	}

	ack := AckResponse{Message: i.ackMessage()}

	ev, err := Decode(r.Body)
	if err != nil {
		reqLogger.Warn("ignoring malformed callback", slog.String("error", err.Error()))
		api.RespondWithJSONPayload(w, http.StatusOK, ack)
		return
	}

	status := ev.Status()
	logger.ContextWithLogAttrs(ctx,
		slog.String("state", ev.State),
		slog.String("request_status", status),
	)

	err = i.store.Update(ctx, ev.State, status, ev.Result(i.kind))
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		i.metrics.IncCallbackUnmatched(string(i.kind))
		reqLogger.Warn("callback state matches no tracked request - ignoring",
			slog.String("state", ev.State),
			slog.String("request_status", status))
	case err != nil:
		reqLogger.Error("failed to apply callback", slog.String("error", err.Error()))
	default:
		i.metrics.IncCallback(string(i.kind), status)
		reqLogger.Info("callback applied",
			slog.String("state", ev.State),
			slog.String("request_status", status),
			slog.String("platform_request_id", ev.RequestID))
		if ev.Error != nil {
			reqLogger.Warn("platform reported an error",
				slog.String("code", ev.Error.Code),
				slog.String("message", ev.Error.Message))
		}
	}

	api.RespondWithJSONPayload(w, http.StatusOK, ack)
}
