package rbac

import (
	"errors"

	appErrors "github.com/frahmantamala/rbac-engine/internal"
)

// ErrDuplicateKey is returned by repositories when a unique index rejects a write.
var ErrDuplicateKey = errors.New("rbac: duplicate key")

var (
	ErrRoleNotFound        = appErrors.NewNotFoundError("Role not found", appErrors.ErrCodeRoleNotFound)
	ErrUserNotFound        = appErrors.NewNotFoundError("User not found", appErrors.ErrCodeUserNotFound)
	ErrAssignmentNotFound  = appErrors.NewNotFoundError("No active assignment for this user and role", appErrors.ErrCodeAssignmentNotFound)
	ErrRoleNameTaken       = appErrors.NewConflictError("A role with this name already exists", appErrors.ErrCodeRoleNameTaken)
	ErrReservedRoleName    = appErrors.NewConflictError("Role name is reserved for a system role", appErrors.ErrCodeReservedRoleName)
	ErrDuplicateAssignment = appErrors.NewConflictError("User already holds this role", appErrors.ErrCodeDuplicateAssignment)
	ErrSystemRoleImmutable = appErrors.NewImmutableEntityError("System roles cannot be modified", appErrors.ErrCodeSystemRoleImmutable)
	ErrRoleInactive        = appErrors.NewValidationError("Role is inactive", appErrors.ErrCodeRoleInactive)
	ErrRoleTenantMismatch  = appErrors.NewValidationError("Role belongs to another tenant", appErrors.ErrCodeRoleTenantMismatch)
	ErrSelfInheritance     = appErrors.NewValidationError("A role cannot inherit from itself", appErrors.ErrCodeSelfInheritance)
)
