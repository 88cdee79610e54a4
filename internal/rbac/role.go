// Package rbac implements role management, role assignment and effective
// permission resolution on top of the permission catalog.
package rbac

import (
	"time"

	rbacDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/rbac"
)

type RoleType string

const (
	RoleTypeSystem RoleType = "system"
	RoleTypeCustom RoleType = "custom"
)

// GlobalTenant is the scope key of roles visible to every tenant.
const GlobalTenant = ""

type Role struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DisplayName    string    `json:"display_name"`
	Description    string    `json:"description"`
	Type           RoleType  `json:"type"`
	Permissions    []string  `json:"permissions"`
	InheritedRoles []string  `json:"inherited_roles"`
	TenantID       string    `json:"tenant_id,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r *Role) IsSystem() bool {
	return r.Type == RoleTypeSystem
}

func (r *Role) IsGlobal() bool {
	return r.TenantID == GlobalTenant
}

// VisibleTo reports whether a caller scoped to tenantID may see the role.
// An empty tenantID has global visibility.
func (r *Role) VisibleTo(tenantID string) bool {
	return tenantID == GlobalTenant || r.IsGlobal() || r.TenantID == tenantID
}

type UserRole struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	RoleID       string     `json:"role_id"`
	TenantID     string     `json:"tenant_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	AssignedAt   time.Time  `json:"assigned_at"`
	AssignedBy   string     `json:"assigned_by,omitempty"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	RevokedBy    string     `json:"revoked_by,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
}

func ToDataModel(r *Role) *rbacDatamodel.Role {
	return &rbacDatamodel.Role{
		ID:             r.ID,
		Name:           r.Name,
		DisplayName:    r.DisplayName,
		Description:    r.Description,
		Type:           string(r.Type),
		Permissions:    nonNil(r.Permissions),
		InheritedRoles: nonNil(r.InheritedRoles),
		TenantID:       r.TenantID,
		IsActive:       r.IsActive,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func FromDataModel(r *rbacDatamodel.Role) *Role {
	return &Role{
		ID:             r.ID,
		Name:           r.Name,
		DisplayName:    r.DisplayName,
		Description:    r.Description,
		Type:           RoleType(r.Type),
		Permissions:    nonNil(r.Permissions),
		InheritedRoles: nonNil(r.InheritedRoles),
		TenantID:       r.TenantID,
		IsActive:       r.IsActive,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func UserRoleToDataModel(ur *UserRole) *rbacDatamodel.UserRole {
	return &rbacDatamodel.UserRole{
		ID:           ur.ID,
		UserID:       ur.UserID,
		RoleID:       ur.RoleID,
		TenantID:     ur.TenantID,
		IsActive:     ur.IsActive,
		AssignedAt:   ur.AssignedAt,
		AssignedBy:   ur.AssignedBy,
		RevokedAt:    ur.RevokedAt,
		RevokedBy:    ur.RevokedBy,
		Reason:       ur.Reason,
		RevokeReason: ur.RevokeReason,
	}
}

func UserRoleFromDataModel(ur *rbacDatamodel.UserRole) *UserRole {
	return &UserRole{
		ID:           ur.ID,
		UserID:       ur.UserID,
		RoleID:       ur.RoleID,
		TenantID:     ur.TenantID,
		IsActive:     ur.IsActive,
		AssignedAt:   ur.AssignedAt,
		AssignedBy:   ur.AssignedBy,
		RevokedAt:    ur.RevokedAt,
		RevokedBy:    ur.RevokedBy,
		Reason:       ur.Reason,
		RevokeReason: ur.RevokeReason,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
