package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/rbac-engine/internal/rbac"
)

var (
	checkUser        string
	checkTenant      string
	checkPermissions []string
	checkAny         bool
)

var errDenied = fmt.Errorf("access denied")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ask whether a user holds permissions in a tenant",
	Long: `Prints the authorization decision as JSON and exits non-zero when access is denied.
Repeat --permission to check several at once; --any passes when one of them is held.`,
	Example: `  rbac-engine check --user u-42 --tenant acme --permission leads:export`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		engine, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer engine.Close()

		mode := rbac.ModeAll
		if checkAny {
			mode = rbac.ModeAny
		}
		decision, err := engine.RBAC.Authorize(ctx, rbac.AuthorizeRequest{
			UserID:      checkUser,
			TenantID:    checkTenant,
			Permissions: checkPermissions,
			Mode:        mode,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(decision); err != nil {
			return err
		}
		if !decision.Allowed {
			return errDenied
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkUser, "user", "", "user id")
	checkCmd.Flags().StringVar(&checkTenant, "tenant", "", "tenant id, empty to check platform-wide grants only")
	checkCmd.Flags().StringArrayVarP(&checkPermissions, "permission", "p", nil, "permission token, e.g. leads:read")
	checkCmd.Flags().BoolVar(&checkAny, "any", false, "allow when any permission is held")
	_ = checkCmd.MarkFlagRequired("user")
	_ = checkCmd.MarkFlagRequired("permission")
}
