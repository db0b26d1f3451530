package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/verifiedid-demo/internal/server/handlers"
	"github.com/information-sharing-networks/verifiedid-demo/internal/tracker"
)

// ErrWatchTimeout is returned by watch when no terminal status was reached in time
var ErrWatchTimeout = errors.New("timed out waiting for a terminal status")

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <request-id>",
		Short: "Print the status of a tracked request",
		Long:  `Query the service for the current status document of an issuance or verification request`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := opts.client.RequestStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}

func newWatchCommand(opts *options) *cobra.Command {
	var (
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <request-id>",
		Short: "Poll a tracked request until it completes",
		Long: `Poll the status endpoint until the request reaches a terminal status, printing each status change.

The final status document is printed when the request completes.

Example:
  vcctl watch 8d5a1c2e-5a0e-4a51-9d55-0c4f3c1b2a11 --interval 1s --timeout 5m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			final, err := watch(ctx, opts.client, args[0], interval, func(s *handlers.RequestStatusResponse) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", time.Now().Format(time.TimeOnly), describe(s))
			})
			if err != nil {
				return err
			}

			opts.appLogger.Debug("request completed",
				slog.String("request_id", final.RequestID),
				slog.String("status", final.Status))
			return printJSON(cmd.OutOrStdout(), final)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Give up after this long")

	return cmd
}

// watch polls until a terminal status is returned. onChange is called each time the status changes.
func watch(ctx context.Context, client *Client, id string, interval time.Duration, onChange func(*handlers.RequestStatusResponse)) (*handlers.RequestStatusResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		status, err := client.RequestStatus(ctx, id)
		switch {
		case err == nil:
			if status.Status != last {
				last = status.Status
				onChange(status)
			}
			if tracker.IsTerminal(status.Status) {
				return status, nil
			}
		case errors.Is(err, ErrRequestNotFound):
			// the id is never valid again once it is unknown (expired or never created)
			return nil, err
		case ctx.Err() != nil:
			return nil, ErrWatchTimeout
		default:
			slog.Warn("status poll failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return nil, ErrWatchTimeout
		case <-ticker.C:
		}
	}
}

func describe(s *handlers.RequestStatusResponse) string {
	if s.Message != "" {
		return fmt.Sprintf("%s (%s)", s.Status, s.Message)
	}
	return s.Status
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
