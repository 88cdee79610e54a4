package rbac

import (
	"context"

	"github.com/frahmantamala/rbac-engine/internal/permission"
)

// GetUserPermissions resolves the union of the user's active roles, including
// inherited roles. An empty tenantID counts only platform-wide grants.
func (s *Service) GetUserPermissions(ctx context.Context, userID, tenantID string) (permission.Set, error) {
	// the version is taken before the store is read so a concurrent
	// invalidation turns the Set below into a no-op
	cached, version, ok, err := s.cache.Get(ctx, userID, tenantID)
	if err != nil {
		s.logger.Warn("permission cache read failed", "user_id", userID, "tenant_id", tenantID, "error", err)
	} else if ok {
		return permission.NewSet(cached...), nil
	}

	roles, err := s.GetUserRoles(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	perms := s.resolver.ResolveMany(ctx, roles, newMemoLookup(s))

	if err := s.cache.Set(ctx, userID, tenantID, version, perms.Sorted()); err != nil {
		s.logger.Warn("permission cache write failed", "user_id", userID, "tenant_id", tenantID, "error", err)
	}
	return perms, nil
}

func (s *Service) HasPermission(ctx context.Context, userID, tenantID, perm string) (bool, error) {
	perms, err := s.GetUserPermissions(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}
	return perms.Has(perm), nil
}

// HasAnyPermission is false for an empty list.
func (s *Service) HasAnyPermission(ctx context.Context, userID, tenantID string, required ...string) (bool, error) {
	if len(required) == 0 {
		return false, nil
	}
	perms, err := s.GetUserPermissions(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}
	return perms.HasAny(required...), nil
}

// HasAllPermissions is true for an empty list.
func (s *Service) HasAllPermissions(ctx context.Context, userID, tenantID string, required ...string) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}
	perms, err := s.GetUserPermissions(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}
	return perms.HasAll(required...), nil
}

// Authorize answers a capability check. Mode defaults to all.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (*Decision, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	required := permission.Normalize(req.Permissions)
	mode := req.Mode
	if mode == "" {
		mode = ModeAll
	}

	perms, err := s.GetUserPermissions(ctx, req.UserID, req.TenantID)
	if err != nil {
		return nil, err
	}

	missing := perms.Missing(required...)
	decision := &Decision{Missing: missing}
	switch mode {
	case ModeAny:
		decision.Allowed = perms.HasAny(required...)
		if decision.Allowed {
			decision.Reason = "user holds at least one requested permission"
		} else {
			decision.Reason = "user holds none of the requested permissions"
		}
	default:
		decision.Allowed = len(missing) == 0
		if decision.Allowed {
			decision.Reason = "user holds every requested permission"
		} else {
			decision.Reason = "user is missing required permissions"
		}
	}

	s.logger.Debug("authorization decision",
		"user_id", req.UserID,
		"tenant_id", req.TenantID,
		"mode", mode,
		"allowed", decision.Allowed,
		"missing", missing)
	return decision, nil
}

// memoLookup caches role lookups for the duration of one resolution.
type memoLookup struct {
	next  RoleLookup
	roles map[visitKey]*Role
}

func newMemoLookup(next RoleLookup) *memoLookup {
	return &memoLookup{next: next, roles: make(map[visitKey]*Role)}
}

func (m *memoLookup) FindRoleByName(ctx context.Context, name, tenantID string) (*Role, error) {
	key := visitKey{tenantID: tenantID, name: name}
	if role, ok := m.roles[key]; ok {
		return role, nil
	}
	role, err := m.next.FindRoleByName(ctx, name, tenantID)
	if err != nil {
		return nil, err
	}
	m.roles[key] = role
	return role, nil
}
