package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/rbac-engine/internal/permission"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
)

var superAdminUser string

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the system roles and optionally the first super admin",
	Long: `Creates every system role that does not exist yet. Running it again is a no-op.
With --super-admin, the given user also receives the global SUPER_ADMIN role.`,
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

		created, err := engine.RBAC.InitializeSystemRoles(ctx)
		if err != nil {
			return fmt.Errorf("initialize system roles: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "system roles created: %d\n", created)

		if superAdminUser == "" {
			return nil
		}
		return grantSuperAdmin(ctx, cmd, engine.RBAC, superAdminUser)
	},
}

func init() {
	bootstrapCmd.Flags().StringVar(&superAdminUser, "super-admin", "", "user id to grant SUPER_ADMIN")
}

func grantSuperAdmin(ctx context.Context, cmd *cobra.Command, svc *rbac.Service, userID string) error {
	role, err := svc.FindRoleByName(ctx, permission.RoleSuperAdmin, rbac.GlobalTenant)
	if err != nil {
		return fmt.Errorf("find %s: %w", permission.RoleSuperAdmin, err)
	}
	if role == nil {
		return fmt.Errorf("%s role is missing", permission.RoleSuperAdmin)
	}

	_, err = svc.AssignRoleToUser(ctx, userID, role.ID, rbac.GlobalTenant, rbac.SystemActor, "bootstrap")
	if errors.Is(err, rbac.ErrDuplicateAssignment) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already holds %s\n", userID, permission.RoleSuperAdmin)
		return nil
	}
	if err != nil {
		return fmt.Errorf("assign %s: %w", permission.RoleSuperAdmin, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", permission.RoleSuperAdmin, userID)
	return nil
}
