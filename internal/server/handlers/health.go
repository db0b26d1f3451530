package handlers

import (
	"net/http"
	"time"

	"github.com/information-sharing-networks/verifiedid-demo/internal/api"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status      string    `json:"status" example:"healthy"`
	App         string    `json:"app" example:"verifiedid-issuer"`
	Timestamp   time.Time `json:"timestamp" example:"2026-01-28T10:00:00Z"`
	Environment string    `json:"environment" example:"dev"`
}

// HandleHealth godoc
//
//	@Summary		Health (liveness) Check
//	@Description	Check if the HTTP service is alive and responding.
//	@Tags			Common
//	@Produce		json
//
//	@Success		200	{object}	HealthResponse
//
//	@Router			/health [get]
func HandleHealth(appName, environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.RespondWithJSONPayload(w, http.StatusOK, HealthResponse{
			Status:      "healthy",
			App:         appName,
			Timestamp:   time.Now().UTC(),
			Environment: environment,
		})
	}
}
