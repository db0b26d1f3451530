package cli

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

const minKeyBytes = 16

func newGenkeyCommand() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a callback API key",
		Long: `Generate a random key for CALLBACK_API_KEY.

The platform sends the key in the api-key header of every callback and the service rejects callbacks without it.
Set the same value on the service that creates the requests.

Example:
  vcctl genkey --bytes 32`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := generateKey(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "bytes", 32, "Number of random bytes in the key")

	return cmd
}

func generateKey(size int) (string, error) {
	if size < minKeyBytes {
		return "", fmt.Errorf("--bytes must be at least %d", minKeyBytes)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
