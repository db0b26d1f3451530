// Package cli implements vcctl, the operator CLI for the issuer and verifier services.
//
// vcctl talks to a running service over HTTP; it does not need the service configuration.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/information-sharing-networks/verifiedid-demo/internal/logger"
	"github.com/information-sharing-networks/verifiedid-demo/internal/version"
	"github.com/spf13/cobra"
)

const defaultServerURL = "http://localhost:8080"

// options shared by all commands
type options struct {
	serverURL string
	logLevel  string
	timeout   time.Duration

	client    *Client
	appLogger *slog.Logger
}

// NewRootCommand returns the vcctl command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:               "vcctl",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Verified ID demo CLI",
		Long:              `vcctl starts presentation requests and follows tracked requests on a running issuer or verifier service`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.appLogger = logger.InitLogger(logger.ParseLogLevel(opts.logLevel), "dev", "")
			opts.client = NewClient(opts.serverURL, opts.timeout)
			return nil
		},
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	serverDefault := defaultServerURL
	if env := os.Getenv("VCCTL_SERVER"); env != "" {
		serverDefault = env
	}

	rootCmd.PersistentFlags().StringVarP(&opts.serverURL, "server", "s", serverDefault, "Base URL of the issuer or verifier service (env VCCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error or none")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "http-timeout", 30*time.Second, "Timeout for each HTTP call")

	rootCmd.AddCommand(newStatusCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))
	rootCmd.AddCommand(newVerifyCommand(opts))
	rootCmd.AddCommand(newGenkeyCommand())

	return rootCmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
