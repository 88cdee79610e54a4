package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/frahmantamala/rbac-engine/internal"
	rbacDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-engine/internal/core/events"
	"github.com/frahmantamala/rbac-engine/internal/permission"
)

const (
	DefaultMaxInheritanceDepth = 16
	DefaultPageSize            = 20
	DefaultMaxPageSize         = 100

	// SystemActor attributes changes made by the engine itself.
	SystemActor = "system"
)

type Service struct {
	roles     RoleRepository
	userRoles UserRoleRepository
	catalog   *permission.Catalog
	resolver  *Resolver
	directory UserDirectory
	publisher EventPublisher
	cache     PermissionCache
	logger    *slog.Logger
	now       func() time.Time

	maxDepth        int
	defaultPageSize int
	maxPageSize     int
}

type Option func(*Service)

// WithUserDirectory makes AssignRoleToUser reject unknown users.
func WithUserDirectory(d UserDirectory) Option {
	return func(s *Service) { s.directory = d }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithCache(c PermissionCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithMaxInheritanceDepth caps inheritance traversal; 0 disables the cap.
func WithMaxInheritanceDepth(depth int) Option {
	return func(s *Service) { s.maxDepth = depth }
}

func WithPageSize(defaultSize, maxSize int) Option {
	return func(s *Service) {
		if defaultSize > 0 {
			s.defaultPageSize = defaultSize
		}
		if maxSize > 0 {
			s.maxPageSize = maxSize
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(roles RoleRepository, userRoles UserRoleRepository, catalog *permission.Catalog, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		roles:           roles,
		userRoles:       userRoles,
		catalog:         catalog,
		cache:           nopCache{},
		logger:          logger,
		now:             time.Now,
		maxDepth:        DefaultMaxInheritanceDepth,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     DefaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultPageSize > s.maxPageSize {
		s.defaultPageSize = s.maxPageSize
	}
	s.resolver = NewResolver(s.maxDepth, logger)
	return s
}

func (s *Service) Catalog() *permission.Catalog {
	return s.catalog
}

// FindRoleByName implements RoleLookup against the role store.
func (s *Service) FindRoleByName(ctx context.Context, name, tenantID string) (*Role, error) {
	row, err := s.roles.GetByName(ctx, name, tenantID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

// InitializeSystemRoles creates the catalog's system roles that do not exist
// yet and returns how many were created. Safe to run concurrently from
// several instances.
func (s *Service) InitializeSystemRoles(ctx context.Context) (int, error) {
	created := 0
	for _, seed := range s.catalog.SystemRoles() {
		existing, err := s.roles.GetByName(ctx, seed.Name, GlobalTenant)
		if err != nil {
			s.logger.Error("failed to look up system role", "role", seed.Name, "error", err)
			return created, appErrors.NewInternalError("Failed to initialize system roles", err)
		}
		if existing != nil {
			if existing.Type != string(RoleTypeSystem) {
				s.logger.Warn("global custom role occupies a system role name", "role", seed.Name, "role_id", existing.ID)
			}
			continue
		}

		now := s.now()
		role := &Role{
			ID:             uuid.New().String(),
			Name:           seed.Name,
			DisplayName:    seed.DisplayName,
			Description:    seed.Description,
			Type:           RoleTypeSystem,
			Permissions:    seed.Permissions,
			InheritedRoles: []string{},
			TenantID:       GlobalTenant,
			IsActive:       true,
			CreatedBy:      SystemActor,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.roles.Create(ctx, ToDataModel(role)); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				s.logger.Info("system role created concurrently", "role", seed.Name)
				continue
			}
			s.logger.Error("failed to create system role", "role", seed.Name, "error", err)
			return created, appErrors.NewInternalError("Failed to initialize system roles", err)
		}
		created++
		s.emit(ctx, events.EventTypeRoleCreated, SystemActor, GlobalTenant, events.TargetRole, role.ID, "system role bootstrap",
			map[string]string{"name": role.Name, "type": string(role.Type)})
	}

	if created > 0 {
		s.invalidateTenant(ctx, GlobalTenant)
	}
	s.logger.Info("system roles initialized", "created", created, "total", len(s.catalog.SystemRoles()))
	return created, nil
}

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO, tenantID, performedBy string) (*Role, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Debug("role validation failed", "error", err, "tenant_id", tenantID)
		return nil, err
	}
	if s.catalog.IsSystemRoleName(dto.Name) {
		return nil, ErrReservedRoleName
	}

	existing, err := s.roles.GetByName(ctx, dto.Name, tenantID)
	if err != nil {
		s.logger.Error("failed to check role name", "name", dto.Name, "tenant_id", tenantID, "error", err)
		return nil, appErrors.NewInternalError("Failed to create role", err)
	}
	if existing != nil {
		return nil, ErrRoleNameTaken
	}

	perms := permission.Normalize(dto.Permissions)
	inherited := permission.Normalize(dto.InheritedRoles)
	if err := s.validateGrants(ctx, dto.Name, tenantID, perms, inherited); err != nil {
		return nil, err
	}

	displayName := dto.DisplayName
	if displayName == "" {
		displayName = dto.Name
	}
	now := s.now()
	role := &Role{
		ID:             uuid.New().String(),
		Name:           dto.Name,
		DisplayName:    displayName,
		Description:    dto.Description,
		Type:           RoleTypeCustom,
		Permissions:    perms,
		InheritedRoles: inherited,
		TenantID:       tenantID,
		IsActive:       true,
		CreatedBy:      performedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.roles.Create(ctx, ToDataModel(role)); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, ErrRoleNameTaken
		}
		s.logger.Error("failed to create role", "name", role.Name, "tenant_id", tenantID, "error", err)
		return nil, appErrors.NewInternalError("Failed to create role", err)
	}

	// a tenant role can shadow a global role of the same name in inheritance lookups
	s.invalidateTenant(ctx, tenantID)
	s.emit(ctx, events.EventTypeRoleCreated, performedBy, tenantID, events.TargetRole, role.ID, "",
		map[string]string{"name": role.Name, "type": string(role.Type)})
	s.logger.Info("role created", "role_id", role.ID, "name", role.Name, "tenant_id", tenantID, "performed_by", performedBy)
	return role, nil
}

func (s *Service) UpdateRole(ctx context.Context, id string, dto UpdateRoleDTO, performedBy string) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	role, err := s.loadMutableRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.IsEmpty() {
		return role, nil
	}

	changed := map[string]string{}
	if dto.Name != nil && *dto.Name != role.Name {
		if s.catalog.IsSystemRoleName(*dto.Name) {
			return nil, ErrReservedRoleName
		}
		other, err := s.roles.GetByName(ctx, *dto.Name, role.TenantID)
		if err != nil {
			s.logger.Error("failed to check role name", "name", *dto.Name, "error", err)
			return nil, appErrors.NewInternalError("Failed to update role", err)
		}
		if other != nil && other.ID != role.ID {
			return nil, ErrRoleNameTaken
		}
		changed["previous_name"] = role.Name
		role.Name = *dto.Name
	}
	if dto.DisplayName != nil {
		role.DisplayName = *dto.DisplayName
		changed["display_name"] = role.DisplayName
	}
	if dto.Description != nil {
		role.Description = *dto.Description
		changed["description"] = "updated"
	}
	if dto.Permissions != nil {
		role.Permissions = permission.Normalize(*dto.Permissions)
		changed["permissions"] = fmt.Sprintf("%d", len(role.Permissions))
	}
	if dto.InheritedRoles != nil {
		role.InheritedRoles = permission.Normalize(*dto.InheritedRoles)
		changed["inherited_roles"] = fmt.Sprintf("%d", len(role.InheritedRoles))
	}

	if err := s.validateGrants(ctx, role.Name, role.TenantID, role.Permissions, role.InheritedRoles); err != nil {
		return nil, err
	}

	role.UpdatedAt = s.now()
	if err := s.roles.Update(ctx, ToDataModel(role)); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, ErrRoleNameTaken
		}
		s.logger.Error("failed to update role", "role_id", id, "error", err)
		return nil, appErrors.NewInternalError("Failed to update role", err)
	}

	s.invalidateTenant(ctx, role.TenantID)
	changed["name"] = role.Name
	s.emit(ctx, events.EventTypeRoleUpdated, performedBy, role.TenantID, events.TargetRole, role.ID, "", changed)
	s.logger.Info("role updated", "role_id", role.ID, "name", role.Name, "performed_by", performedBy)
	return role, nil
}

// DeleteRole revokes every active assignment of the role, then removes it.
func (s *Service) DeleteRole(ctx context.Context, id, performedBy string) error {
	role, err := s.loadMutableRole(ctx, id)
	if err != nil {
		return err
	}

	revocation := Revocation{RevokedAt: s.now(), RevokedBy: performedBy, Reason: "role deleted"}
	revoked, err := s.userRoles.DeactivateByRole(ctx, role.ID, revocation)
	if err != nil {
		s.logger.Error("failed to revoke role assignments", "role_id", id, "error", err)
		return appErrors.NewInternalError("Failed to delete role", err)
	}

	if err := s.roles.Delete(ctx, role.ID); err != nil {
		s.logger.Error("failed to delete role", "role_id", id, "error", err)
		return appErrors.NewInternalError("Failed to delete role", err)
	}

	s.invalidateTenant(ctx, role.TenantID)
	for _, a := range revoked {
		s.invalidateUser(ctx, a.UserID)
		s.emit(ctx, events.EventTypeUserRoleRevoked, performedBy, a.TenantID, events.TargetUserRole, a.ID, revocation.Reason,
			map[string]string{"user_id": a.UserID, "role_id": a.RoleID, "role_name": role.Name})
	}
	s.emit(ctx, events.EventTypeRoleDeleted, performedBy, role.TenantID, events.TargetRole, role.ID, "",
		map[string]string{"name": role.Name, "revoked_assignments": fmt.Sprintf("%d", len(revoked))})
	s.logger.Info("role deleted", "role_id", role.ID, "name", role.Name, "revoked_assignments", len(revoked), "performed_by", performedBy)
	return nil
}

// SetRoleActive toggles a custom role. Inactive roles grant nothing and are
// hidden from default searches, but keep their assignments.
func (s *Service) SetRoleActive(ctx context.Context, id string, active bool, performedBy string) (*Role, error) {
	role, err := s.loadMutableRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsActive == active {
		return role, nil
	}

	role.IsActive = active
	role.UpdatedAt = s.now()
	if err := s.roles.Update(ctx, ToDataModel(role)); err != nil {
		s.logger.Error("failed to toggle role", "role_id", id, "active", active, "error", err)
		return nil, appErrors.NewInternalError("Failed to update role", err)
	}

	action := events.EventTypeRoleDeactivated
	if active {
		action = events.EventTypeRoleActivated
	}
	s.invalidateTenant(ctx, role.TenantID)
	s.emit(ctx, action, performedBy, role.TenantID, events.TargetRole, role.ID, "", map[string]string{"name": role.Name})
	s.logger.Info("role state changed", "role_id", role.ID, "active", active, "performed_by", performedBy)
	return role, nil
}

// GetRole returns the role if it is visible from tenantID.
func (s *Service) GetRole(ctx context.Context, id, tenantID string) (*Role, error) {
	row, err := s.roles.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get role", "role_id", id, "error", err)
		return nil, appErrors.NewInternalError("Failed to get role", err)
	}
	if row == nil {
		return nil, ErrRoleNotFound
	}
	role := FromDataModel(row)
	if !role.VisibleTo(tenantID) {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

// SearchRoles lists the roles visible from tenantID. An empty tenantID sees
// every tenant.
func (s *Service) SearchRoles(ctx context.Context, filter SearchFilter, tenantID string) (*SearchResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	isActive := filter.IsActive
	if isActive == nil {
		active := true
		isActive = &active
	}

	rows, total, err := s.roles.Search(ctx, RoleQuery{
		Text:     filter.Query,
		Type:     filter.Type,
		IsActive: isActive,
		TenantID: tenantID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.logger.Error("failed to search roles", "tenant_id", tenantID, "error", err)
		return nil, appErrors.NewInternalError("Failed to search roles", err)
	}

	roles := make([]*Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, FromDataModel(row))
	}
	return &SearchResult{Roles: roles, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) loadMutableRole(ctx context.Context, id string) (*Role, error) {
	row, err := s.roles.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get role", "role_id", id, "error", err)
		return nil, appErrors.NewInternalError("Failed to load role", err)
	}
	if row == nil {
		return nil, ErrRoleNotFound
	}
	role := FromDataModel(row)
	if role.IsSystem() {
		return nil, ErrSystemRoleImmutable
	}
	return role, nil
}

// validateGrants checks that every permission is in the catalog and every
// inherited name resolves from the role's scope.
func (s *Service) validateGrants(ctx context.Context, name, tenantID string, perms, inherited []string) error {
	if unknown := s.catalog.Unknown(perms); len(unknown) > 0 {
		details := make([]appErrors.ValidationError, 0, len(unknown))
		for _, p := range unknown {
			details = append(details, appErrors.ValidationError{
				Field:   "permissions",
				Message: fmt.Sprintf("unknown permission %q", p),
				Code:    string(appErrors.ErrCodeUnknownPermission),
			})
		}
		return appErrors.NewValidationError("Unknown permissions", appErrors.ErrCodeUnknownPermission).
			WithDetails(appErrors.ValidationErrors{Errors: details})
	}

	var unresolved []appErrors.ValidationError
	for _, parent := range inherited {
		if parent == name {
			return ErrSelfInheritance
		}
		role, err := ScopedLookup(ctx, s, parent, tenantID)
		if err != nil {
			s.logger.Error("failed to resolve inherited role", "role", name, "inherited_role", parent, "error", err)
			return appErrors.NewInternalError("Failed to resolve inherited roles", err)
		}
		if role == nil {
			unresolved = append(unresolved, appErrors.ValidationError{
				Field:   "inherited_roles",
				Message: fmt.Sprintf("inherited role %q does not exist in this tenant or globally", parent),
				Code:    string(appErrors.ErrCodeUnresolvableRole),
			})
		}
	}
	if len(unresolved) > 0 {
		return appErrors.NewValidationError("Unresolvable inherited roles", appErrors.ErrCodeUnresolvableRole).
			WithDetails(appErrors.ValidationErrors{Errors: unresolved})
	}
	return nil
}

// emit publishes an audit event. Failures are logged and never surface.
func (s *Service) emit(ctx context.Context, action, actorID, tenantID, targetType, targetID, reason string, metadata map[string]string) {
	if s.publisher == nil {
		return
	}
	event := events.NewAuditEvent(action, actorID, tenantID, targetType, targetID, reason, metadata, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish audit event", "action", action, "target_id", targetID, "error", err)
	}
}

func (s *Service) invalidateUser(ctx context.Context, userID string) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate permission cache", "user_id", userID, "error", err)
	}
}

func (s *Service) invalidateTenant(ctx context.Context, tenantID string) {
	if err := s.cache.InvalidateTenant(ctx, tenantID); err != nil {
		s.logger.Warn("failed to invalidate permission cache", "tenant_id", tenantID, "error", err)
	}
}

func toUserRoles(rows []*rbacDatamodel.UserRole) []*UserRole {
	out := make([]*UserRole, 0, len(rows))
	for _, row := range rows {
		out = append(out, UserRoleFromDataModel(row))
	}
	return out
}
