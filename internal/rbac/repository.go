package rbac

import (
	"context"

	rbacDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-engine/internal/core/events"
)

// RoleQuery is the storage-level form of a role search. An empty TenantID
// matches every scope; otherwise the tenant's roles and global roles match.
type RoleQuery struct {
	Text     string
	Type     RoleType
	IsActive *bool
	TenantID string
	Limit    int
	Offset   int
}

// RoleRepository persists roles. Lookups return nil, nil when nothing matches.
// Unique violations are reported as ErrDuplicateKey.
type RoleRepository interface {
	Create(ctx context.Context, role *rbacDatamodel.Role) error
	GetByID(ctx context.Context, id string) (*rbacDatamodel.Role, error)
	GetByName(ctx context.Context, name, tenantID string) (*rbacDatamodel.Role, error)
	Search(ctx context.Context, q RoleQuery) ([]*rbacDatamodel.Role, int64, error)
	Update(ctx context.Context, role *rbacDatamodel.Role) error
	Delete(ctx context.Context, id string) error
}

// UserRoleRepository persists assignments. Rows are deactivated, never deleted.
type UserRoleRepository interface {
	Create(ctx context.Context, ur *rbacDatamodel.UserRole) error
	GetActive(ctx context.Context, userID, roleID string) (*rbacDatamodel.UserRole, error)
	// ListActiveByUser returns the tenant's assignments plus tenant-less ones.
	// An empty tenantID returns only tenant-less assignments.
	ListActiveByUser(ctx context.Context, userID, tenantID string) ([]*rbacDatamodel.UserRole, error)
	// Deactivate returns ErrAssignmentNotFound when the row is no longer active.
	Deactivate(ctx context.Context, id string, revocation Revocation) error
	// DeactivateByRole returns the rows it deactivated.
	DeactivateByRole(ctx context.Context, roleID string, revocation Revocation) ([]*rbacDatamodel.UserRole, error)
}

// UserDirectory answers whether a user id is known to the identity layer.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// EventPublisher receives audit events. *events.EventBus satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}
