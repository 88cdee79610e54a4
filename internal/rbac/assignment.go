package rbac

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	appErrors "github.com/frahmantamala/rbac-engine/internal"
	"github.com/frahmantamala/rbac-engine/internal/core/events"
)

// AssignRoleToUser grants roleID to userID. For tenant roles the assignment
// takes the role's tenant; tenantID must be empty or match it. Global roles
// are assigned in the tenantID context, which may be empty.
func (s *Service) AssignRoleToUser(ctx context.Context, userID, roleID, tenantID, performedBy, reason string) (*UserRole, error) {
	if userID == "" {
		return nil, appErrors.NewValidationFieldError("user_id", "user_id is required", appErrors.ErrCodeValidationFailed)
	}

	row, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		s.logger.Error("failed to get role", "role_id", roleID, "error", err)
		return nil, appErrors.NewInternalError("Failed to assign role", err)
	}
	if row == nil {
		return nil, ErrRoleNotFound
	}
	role := FromDataModel(row)

	assignmentTenant := tenantID
	if !role.IsGlobal() {
		if tenantID != GlobalTenant && tenantID != role.TenantID {
			return nil, ErrRoleTenantMismatch
		}
		assignmentTenant = role.TenantID
	}
	if !role.IsActive {
		return nil, ErrRoleInactive
	}

	if s.directory != nil {
		exists, err := s.directory.Exists(ctx, userID)
		if err != nil {
			s.logger.Error("failed to check user", "user_id", userID, "error", err)
			return nil, appErrors.NewInternalError("Failed to assign role", err)
		}
		if !exists {
			return nil, ErrUserNotFound
		}
	}

	active, err := s.userRoles.GetActive(ctx, userID, roleID)
	if err != nil {
		s.logger.Error("failed to check existing assignment", "user_id", userID, "role_id", roleID, "error", err)
		return nil, appErrors.NewInternalError("Failed to assign role", err)
	}
	if active != nil {
		return nil, ErrDuplicateAssignment
	}

	assignment := &UserRole{
		ID:         uuid.New().String(),
		UserID:     userID,
		RoleID:     roleID,
		TenantID:   assignmentTenant,
		IsActive:   true,
		AssignedAt: s.now(),
		AssignedBy: performedBy,
		Reason:     reason,
	}
	if err := s.userRoles.Create(ctx, UserRoleToDataModel(assignment)); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, ErrDuplicateAssignment
		}
		s.logger.Error("failed to create assignment", "user_id", userID, "role_id", roleID, "error", err)
		return nil, appErrors.NewInternalError("Failed to assign role", err)
	}

	s.invalidateUser(ctx, userID)
	s.emit(ctx, events.EventTypeUserRoleAssigned, performedBy, assignmentTenant, events.TargetUserRole, assignment.ID, reason,
		map[string]string{"user_id": userID, "role_id": roleID, "role_name": role.Name})
	s.logger.Info("role assigned", "user_id", userID, "role", role.Name, "tenant_id", assignmentTenant, "performed_by", performedBy)
	return assignment, nil
}

func (s *Service) RevokeRoleFromUser(ctx context.Context, userID, roleID, performedBy, reason string) error {
	active, err := s.userRoles.GetActive(ctx, userID, roleID)
	if err != nil {
		s.logger.Error("failed to get assignment", "user_id", userID, "role_id", roleID, "error", err)
		return appErrors.NewInternalError("Failed to revoke role", err)
	}
	if active == nil {
		return ErrAssignmentNotFound
	}

	revocation := Revocation{RevokedAt: s.now(), RevokedBy: performedBy, Reason: reason}
	if err := s.userRoles.Deactivate(ctx, active.ID, revocation); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return ErrAssignmentNotFound
		}
		s.logger.Error("failed to revoke assignment", "assignment_id", active.ID, "error", err)
		return appErrors.NewInternalError("Failed to revoke role", err)
	}

	s.invalidateUser(ctx, userID)
	s.emit(ctx, events.EventTypeUserRoleRevoked, performedBy, active.TenantID, events.TargetUserRole, active.ID, reason,
		map[string]string{"user_id": userID, "role_id": roleID})
	s.logger.Info("role revoked", "user_id", userID, "role_id", roleID, "performed_by", performedBy)
	return nil
}

// GetUserAssignments returns the user's active assignment rows.
func (s *Service) GetUserAssignments(ctx context.Context, userID, tenantID string) ([]*UserRole, error) {
	rows, err := s.userRoles.ListActiveByUser(ctx, userID, tenantID)
	if err != nil {
		s.logger.Error("failed to list assignments", "user_id", userID, "tenant_id", tenantID, "error", err)
		return nil, appErrors.NewInternalError("Failed to load user roles", err)
	}
	return toUserRoles(rows), nil
}

// GetUserRoles returns the active roles behind the user's active assignments,
// sorted by name. An empty tenantID is the platform scope: only tenant-less
// assignments of global roles count, never a tenant's custom roles.
func (s *Service) GetUserRoles(ctx context.Context, userID, tenantID string) ([]*Role, error) {
	assignments, err := s.GetUserAssignments(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(assignments))
	roles := make([]*Role, 0, len(assignments))
	for _, a := range assignments {
		if _, dup := seen[a.RoleID]; dup {
			continue
		}
		seen[a.RoleID] = struct{}{}

		row, err := s.roles.GetByID(ctx, a.RoleID)
		if err != nil {
			s.logger.Error("failed to get assigned role", "role_id", a.RoleID, "error", err)
			return nil, appErrors.NewInternalError("Failed to load user roles", err)
		}
		if row == nil {
			s.logger.Warn("assignment references missing role", "assignment_id", a.ID, "role_id", a.RoleID)
			continue
		}
		role := FromDataModel(row)
		if !role.IsActive {
			continue
		}
		if !role.IsGlobal() && role.TenantID != tenantID {
			s.logger.Warn("assignment crosses tenants", "assignment_id", a.ID, "role_id", role.ID, "tenant_id", tenantID)
			continue
		}
		roles = append(roles, role)
	}

	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Name == roles[j].Name {
			return roles[i].TenantID < roles[j].TenantID
		}
		return roles[i].Name < roles[j].Name
	})
	return roles, nil
}
