package rbac

import (
	"regexp"
	"time"

	"github.com/frahmantamala/rbac-engine/internal/core/common/validation"
)

const (
	maxRoleNameLength        = 64
	maxDisplayNameLength     = 128
	maxDescriptionLength     = 512
	maxPermissionsPerRole    = 256
	maxInheritedRolesPerRole = 32
)

var roleNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

type CreateRoleDTO struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Description    string   `json:"description"`
	Permissions    []string `json:"permissions"`
	InheritedRoles []string `json:"inherited_roles"`
}

func (dto CreateRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).
		Required().
		MaxLength(maxRoleNameLength).
		Matches(roleNamePattern, "may only contain letters, digits, '_', '.' and '-'")
	v.Field("display_name", dto.DisplayName).MaxLength(maxDisplayNameLength)
	v.Field("description", dto.Description).MaxLength(maxDescriptionLength)
	v.Field("permissions", dto.Permissions).MaxItems(maxPermissionsPerRole)
	v.Field("inherited_roles", dto.InheritedRoles).MaxItems(maxInheritedRolesPerRole)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateRoleDTO is a patch: nil fields are left unchanged.
type UpdateRoleDTO struct {
	Name           *string   `json:"name,omitempty"`
	DisplayName    *string   `json:"display_name,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Permissions    *[]string `json:"permissions,omitempty"`
	InheritedRoles *[]string `json:"inherited_roles,omitempty"`
}

func (dto UpdateRoleDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", dto.Name).
			Required().
			MaxLength(maxRoleNameLength).
			Matches(roleNamePattern, "may only contain letters, digits, '_', '.' and '-'")
	}
	v.Field("display_name", dto.DisplayName).MaxLength(maxDisplayNameLength)
	v.Field("description", dto.Description).MaxLength(maxDescriptionLength)
	if dto.Permissions != nil {
		v.Field("permissions", *dto.Permissions).MaxItems(maxPermissionsPerRole)
	}
	if dto.InheritedRoles != nil {
		v.Field("inherited_roles", *dto.InheritedRoles).MaxItems(maxInheritedRolesPerRole)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto UpdateRoleDTO) IsEmpty() bool {
	return dto.Name == nil && dto.DisplayName == nil && dto.Description == nil &&
		dto.Permissions == nil && dto.InheritedRoles == nil
}

// SearchFilter narrows SearchRoles. IsActive defaults to active-only when nil.
type SearchFilter struct {
	Query    string   `json:"query,omitempty"`
	Type     RoleType `json:"type,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

func (f SearchFilter) Validate() error {
	v := validation.NewValidator()
	v.Field("type", string(f.Type)).OneOf(string(RoleTypeSystem), string(RoleTypeCustom))
	v.Field("query", f.Query).MaxLength(maxDisplayNameLength)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type SearchResult struct {
	Roles  []*Role `json:"roles"`
	Total  int64   `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Revocation carries the attribution written onto a deactivated assignment.
type Revocation struct {
	RevokedAt time.Time
	RevokedBy string
	Reason    string
}

type AuthorizeMode string

const (
	ModeAny AuthorizeMode = "any"
	ModeAll AuthorizeMode = "all"
)

type AuthorizeRequest struct {
	UserID      string        `json:"user_id"`
	TenantID    string        `json:"tenant_id,omitempty"`
	Permissions []string      `json:"permissions"`
	Mode        AuthorizeMode `json:"mode,omitempty"`
}

func (r AuthorizeRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("user_id", r.UserID).Required()
	v.Field("permissions", r.Permissions).Required()
	v.Field("mode", string(r.Mode)).OneOf(string(ModeAny), string(ModeAll))
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Decision is the answer to an AuthorizeRequest. Missing lists the requested
// permissions the user does not hold.
type Decision struct {
	Allowed bool     `json:"allowed"`
	Reason  string   `json:"reason"`
	Missing []string `json:"missing,omitempty"`
}
