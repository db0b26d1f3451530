package cli

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/verifiedid-demo/internal/config"
	"github.com/information-sharing-networks/verifiedid-demo/internal/logger"
	"github.com/information-sharing-networks/verifiedid-demo/internal/server"
	"github.com/information-sharing-networks/verifiedid-demo/internal/services"
	"github.com/information-sharing-networks/verifiedid-demo/internal/version"
)

// NewServerCommand returns the command run by the issuer-server and verifier-server binaries
func NewServerCommand(service config.Service, short string) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:               service.AppName() + "-server",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             short,
		Long: short + `

The service is configured through environment variables. Variables can also be read from a dotenv
file with --env-file; variables already set in the environment take precedence.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(service, envFile)
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load, ignored when missing")

	return cmd
}

func runServer(service config.Service, envFile string) error {
	if err := config.LoadEnvFile(envFile); err != nil {
		log.Printf("failed to load env file: %v", err.Error())
		return err
	}

	cfg, err := config.NewServerConfig(service)
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		return err
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment, cfg.LogFile)

	appLogger.Info("Configuration loaded",
		slog.String("SERVICE", string(service)),
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("PUBLIC_BASE_URL", cfg.PublicBaseURL),
		slog.String("AZURE_TENANT_ID", cfg.AzureTenantID),
		slog.String("AZURE_CLIENT_ID", cfg.AzureClientID),
		slog.String("VERIFIED_ID_ENDPOINT", cfg.VerifiedIDEndpoint),
		slog.String("VERIFIED_ID_AUTHORITY", cfg.VerifiedIDAuthority),
		slog.String("CREDENTIAL_TYPE", cfg.CredentialType),
		slog.Duration("REQUEST_TTL", cfg.RequestTTL),
		slog.Bool("METRICS_ENABLED", cfg.MetricsEnabled),
	)

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := services.NewServices(ctx, cfg, service, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize services", slog.String("error", err.Error()))
		return err
	}

	srv, err := server.NewServer(ctx, cfg, service, svcs, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		return err
	}

	if err := srv.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
