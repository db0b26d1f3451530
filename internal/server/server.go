package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/information-sharing-networks/verifiedid-demo/internal/callback"
	"github.com/information-sharing-networks/verifiedid-demo/internal/config"
	"github.com/information-sharing-networks/verifiedid-demo/internal/issuance"
	"github.com/information-sharing-networks/verifiedid-demo/internal/logger"
	"github.com/information-sharing-networks/verifiedid-demo/internal/metrics"
	"github.com/information-sharing-networks/verifiedid-demo/internal/profile"
	"github.com/information-sharing-networks/verifiedid-demo/internal/server/handlers"
	appmiddleware "github.com/information-sharing-networks/verifiedid-demo/internal/server/middleware"
	"github.com/information-sharing-networks/verifiedid-demo/internal/services"
	"github.com/information-sharing-networks/verifiedid-demo/internal/tracker"
	"github.com/information-sharing-networks/verifiedid-demo/internal/verification"
)

// callback paths, also used to build the callback URLs sent to the platform
const (
	IssuanceCallbackPath     = "/api/request-callback"
	VerificationCallbackPath = "/api/verification-callback"
)

type Server struct {
	config   *config.ServerEnvironment
	service  config.Service
	logger   *slog.Logger
	router   *chi.Mux
	services *services.Services
	store    tracker.Store

	// metrics is nil when METRICS_ENABLED is false
	metrics *metrics.Metrics
}

// NewServer creates the server for the given service.
//
// ctx bounds background work owned by the server (tracked request eviction).
func NewServer(
	ctx context.Context,
	cfg *config.ServerEnvironment,
	service config.Service,
	svcs *services.Services,
	logger *slog.Logger,
) (*Server, error) {
	if service != config.ServiceIssuer && service != config.ServiceVerifier {
		return nil, fmt.Errorf("unknown service: %s", service)
	}
	if svcs == nil || svcs.RequestService == nil {
		return nil, fmt.Errorf("request service is required")
	}

	server := &Server{
		config:   cfg,
		service:  service,
		logger:   logger,
		router:   chi.NewRouter(),
		services: svcs,
		store:    newStore(ctx, cfg),
	}

	if cfg.MetricsEnabled {
		server.metrics = metrics.New(server.store.Len)
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// newStore returns an evicting store when REQUEST_TTL is set, otherwise requests are kept for the lifetime of the process.
func newStore(ctx context.Context, cfg *config.ServerEnvironment) tracker.Store {
	if cfg.RequestTTL > 0 {
		return tracker.NewExpiringStore(ctx, cfg.RequestTTL)
	}
	return tracker.NewMemoryStore()
}

func (s *Server) recorder() metrics.Recorder {
	if s.metrics == nil {
		return metrics.Noop{}
	}
	return s.metrics
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.config.HandlerTimeout))
	s.router.Use(appmiddleware.SecurityHeaders(s.config.Environment))
	s.router.Use(appmiddleware.RequestSizeLimit(s.config.MaxRequestBodySize))
}

// registerRoutes registers the browser facing routes behind the global rate limiter.
// The platform callbacks are registered outside it: a callback refused with 429 is retried by the platform.
func (s *Server) registerRoutes() {
	var callbackPath string
	var callbackHandler http.HandlerFunc

	s.router.Group(func(r chi.Router) {
		r.Use(appmiddleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))

		r.Get("/health", handlers.HandleHealth(s.service.AppName(), s.config.Environment))
		r.Get("/version", handlers.HandleVersion(s.service.AppName()))
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
		}

		r.Get("/api/request-status/{id}", handlers.HandleRequestStatus(s.store))

		switch s.service {
		case config.ServiceIssuer:
			callbackPath, callbackHandler = IssuanceCallbackPath, s.registerIssuerRoutes(r)
		case config.ServiceVerifier:
			callbackPath, callbackHandler = VerificationCallbackPath, s.registerVerifierRoutes(r)
		}
	})

	s.router.Post(callbackPath, callbackHandler)
}

// registerIssuerRoutes registers the issuer routes on r and returns the callback handler
func (s *Server) registerIssuerRoutes(r chi.Router) http.HandlerFunc {
	issuer := issuance.NewHandler(
		issuance.Config{
			Authority:      s.config.VerifiedIDAuthority,
			ClientName:     s.config.ClientName,
			CredentialType: s.config.CredentialType,
			ManifestURL:    s.config.CredentialManifestURL,
			CallbackURL:    s.config.CallbackURL(IssuanceCallbackPath),
			CallbackAPIKey: s.config.CallbackAPIKey,
			PinLength:      s.config.IssuancePinLength,
		},
		s.store,
		s.services.RequestService,
		s.profileChain(),
		s.services.Directory,
		s.recorder(),
	)
	ingestor := callback.NewIngestor(tracker.KindIssuance, s.store, s.recorder(), s.config.CallbackAPIKey)

	r.Get("/", handlers.HandleLandingPage(handlers.PageIssuer))

	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.RequireIdentity)

		r.Post("/api/issue-credential", issuer.HandleIssueCredential)
		r.Get("/api/user", issuer.HandleGetUser)
		r.Get("/api/user/photo", issuer.HandleGetUserPhoto)
	})

	return ingestor.HandleCallback
}

// registerVerifierRoutes registers the verifier routes on r and returns the callback handler
func (s *Server) registerVerifierRoutes(r chi.Router) http.HandlerFunc {
	verifier := verification.NewHandler(
		verification.Config{
			Authority:            s.config.VerifiedIDAuthority,
			ClientName:           s.config.ClientName,
			CredentialType:       s.config.CredentialType,
			Purpose:              s.config.VerificationPurpose,
			AcceptedIssuers:      s.config.AcceptedIssuers,
			CallbackURL:          s.config.CallbackURL(VerificationCallbackPath),
			CallbackAPIKey:       s.config.CallbackAPIKey,
			AllowRevoked:         s.config.AllowRevoked,
			ValidateLinkedDomain: s.config.ValidateLinkedDomain,
			FaceCheckPhotoClaim:  s.config.FaceCheckPhotoClaim,
			FaceCheckThreshold:   s.config.FaceCheckThreshold,
		},
		s.store,
		s.services.RequestService,
		s.recorder(),
	)
	ingestor := callback.NewIngestor(tracker.KindVerification, s.store, s.recorder(), s.config.CallbackAPIKey)

	r.Get("/", handlers.HandleLandingPage(handlers.PageVerifier))
	r.Post("/api/verify-credential", verifier.HandleVerifyCredential)

	return ingestor.HandleCallback
}

// profileChain resolves profiles from the directory, then the forwarded ID token, then the identity header
func (s *Server) profileChain() *profile.Chain {
	var providers []profile.Provider
	if s.services.Directory != nil {
		providers = append(providers, &profile.DirectoryProvider{Directory: s.services.Directory})
	}
	if s.services.IDTokens != nil {
		providers = append(providers, &profile.IDTokenProvider{Tokens: s.services.IDTokens})
	}
	providers = append(providers, profile.HeaderProvider{})
	return profile.NewChain(providers...)
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("service", string(s.service)),
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr),
			slog.Duration("request_ttl", s.config.RequestTTL),
			slog.Bool("callback_auth", s.config.CallbackAPIKey != ""))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete",
		slog.Int("tracked_requests", s.store.Len()))
	return nil
}
