package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func newVerifyCommand(opts *options) *cobra.Command {
	var faceCheck bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Start a presentation request on a verifier",
		Long: `Ask a verifier service to create a presentation request and print the wallet URL.

Open the URL on a device with a wallet, then follow the request with vcctl watch <request-id>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client.VerifyCredential(cmd.Context(), faceCheck)
			if err != nil {
				return err
			}

			opts.appLogger.Info("presentation request created",
				slog.String("request_id", resp.RequestID),
				slog.Bool("face_check", resp.FaceCheckEnabled))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "request id: %s\n", resp.RequestID)
			fmt.Fprintf(out, "url:        %s\n", resp.URL)
			if resp.Expiry > 0 {
				fmt.Fprintf(out, "expires:    %s\n", time.Unix(resp.Expiry, 0).UTC().Format(time.RFC3339))
			}
			fmt.Fprintf(out, "face check: %t\n", resp.FaceCheckEnabled)
			return nil
		},
	}

	cmd.Flags().BoolVar(&faceCheck, "face-check", false, "Require a face check against the credential photo")

	return cmd
}
