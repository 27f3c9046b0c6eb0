package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koopa0/parley/internal/auth"
	"github.com/koopa0/parley/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a signed bearer token for a user",
	Long: `Issues an HMAC-signed bearer token the browser client can present
in the Authorization header. Tokens are derived from the configured auth
secret; rotating the secret invalidates all issued tokens.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToken(args[0])
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(userID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	fmt.Println(auth.NewHMACProvider(cfg.AuthSecret).Issue(userID))
	return nil
}
