package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/rbac-engine/internal/auth"
)

var (
	tokenUser   string
	tokenTenant string
)

// tokenCmd mints development tokens signed with the configured secret.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed identity token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Security.Validate(); err != nil {
			return fmt.Errorf("security config: %w", err)
		}

		token, err := auth.NewJWTTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL).GenerateToken(tokenUser, tokenTenant)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id")
	tokenCmd.Flags().StringVar(&tokenTenant, "tenant", "", "tenant id, empty for a platform operator holding tenant-less grants")
	_ = tokenCmd.MarkFlagRequired("user")
}
