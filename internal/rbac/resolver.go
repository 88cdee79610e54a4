package rbac

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/rbac-engine/internal/permission"
)

// RoleLookup finds a role by name inside exactly one scope. It returns nil, nil
// when the scope holds no such role.
type RoleLookup interface {
	FindRoleByName(ctx context.Context, name, tenantID string) (*Role, error)
}

// RoleLookupFunc adapts a function to RoleLookup.
type RoleLookupFunc func(ctx context.Context, name, tenantID string) (*Role, error)

func (f RoleLookupFunc) FindRoleByName(ctx context.Context, name, tenantID string) (*Role, error) {
	return f(ctx, name, tenantID)
}

// ScopedLookup resolves a name in the tenant first and falls back to the
// global scope. It never looks into another tenant.
func ScopedLookup(ctx context.Context, lookup RoleLookup, name, tenantID string) (*Role, error) {
	if tenantID != GlobalTenant {
		role, err := lookup.FindRoleByName(ctx, name, tenantID)
		if err != nil || role != nil {
			return role, err
		}
	}
	return lookup.FindRoleByName(ctx, name, GlobalTenant)
}

// Resolver flattens role inheritance into an effective permission set.
type Resolver struct {
	// MaxDepth bounds how many inheritance edges are followed from a root role.
	// Zero means unbounded; the visited set alone guarantees termination.
	MaxDepth int
	logger   *slog.Logger
}

func NewResolver(maxDepth int, logger *slog.Logger) *Resolver {
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Resolver{MaxDepth: maxDepth, logger: logger}
}

type visitKey struct {
	tenantID string
	name     string
}

// ResolveEffectivePermissions returns the role's own permissions plus those of
// every role reachable through InheritedRoles. It never fails: dangling
// references, lookup errors and inactive roles contribute nothing.
func (r *Resolver) ResolveEffectivePermissions(ctx context.Context, role *Role, lookup RoleLookup) permission.Set {
	return r.ResolveMany(ctx, []*Role{role}, lookup)
}

// ResolveMany unions the effective permissions of several roles, sharing one
// visited set so common ancestors are expanded once.
func (r *Resolver) ResolveMany(ctx context.Context, roles []*Role, lookup RoleLookup) permission.Set {
	acc := permission.NewSet()
	visited := make(map[visitKey]struct{})
	for _, role := range roles {
		r.visit(ctx, role, lookup, acc, visited, 0)
	}
	return acc
}

func (r *Resolver) visit(ctx context.Context, role *Role, lookup RoleLookup, acc permission.Set, visited map[visitKey]struct{}, depth int) {
	if role == nil || !role.IsActive {
		return
	}
	key := visitKey{tenantID: role.TenantID, name: role.Name}
	if _, seen := visited[key]; seen {
		return
	}
	visited[key] = struct{}{}
	acc.Add(role.Permissions...)

	if len(role.InheritedRoles) == 0 {
		return
	}
	if r.MaxDepth > 0 && depth >= r.MaxDepth {
		r.logger.Warn("role inheritance depth limit reached",
			"role", role.Name,
			"tenant_id", role.TenantID,
			"max_depth", r.MaxDepth)
		return
	}
	if ctx.Err() != nil {
		return
	}

	for _, name := range role.InheritedRoles {
		parent, err := ScopedLookup(ctx, lookup, name, role.TenantID)
		if err != nil {
			r.logger.Warn("inherited role lookup failed",
				"role", role.Name,
				"inherited_role", name,
				"tenant_id", role.TenantID,
				"error", err)
			continue
		}
		if parent == nil {
			r.logger.Warn("inherited role not found",
				"role", role.Name,
				"inherited_role", name,
				"tenant_id", role.TenantID)
			continue
		}
		r.visit(ctx, parent, lookup, acc, visited, depth+1)
	}
}
