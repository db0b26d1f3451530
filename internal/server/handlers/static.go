package handlers

import (
	"embed"
	"net/http"
)

//go:embed static/*.html
var staticFiles embed.FS

// landing pages
const (
	PageIssuer   = "static/issuer.html"
	PageVerifier = "static/verifier.html"
)

// HandleLandingPage godoc
//
//	@Summary		Landing page
//	@Description	Serves the browser page that drives the issuance or verification flow.
//	@Tags			Common
//	@Produce		html
//	@Success		200	{string}	string	"HTML page"
//	@Router			/ [get]
func HandleLandingPage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := staticFiles.ReadFile(page)
		if err != nil {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}
}
