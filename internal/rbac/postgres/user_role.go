package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	rbacDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
)

type UserRoleRepository struct {
	db *gorm.DB
}

func NewUserRoleRepository(db *gorm.DB) rbac.UserRoleRepository {
	return &UserRoleRepository{db: db}
}

func (r *UserRoleRepository) Create(ctx context.Context, ur *rbacDatamodel.UserRole) error {
	return translate("create user role", r.db.WithContext(ctx).Create(ur).Error)
}

func (r *UserRoleRepository) GetActive(ctx context.Context, userID, roleID string) (*rbacDatamodel.UserRole, error) {
	var ur rbacDatamodel.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ? AND is_active = ?", userID, roleID, true).
		First(&ur).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate("get active user role", err)
	}
	return &ur, nil
}

func (r *UserRoleRepository) ListActiveByUser(ctx context.Context, userID, tenantID string) ([]*rbacDatamodel.UserRole, error) {
	var rows []*rbacDatamodel.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Where("tenant_id IN ?", []string{tenantID, rbac.GlobalTenant}).
		Order("assigned_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("list user roles", err)
	}
	return rows, nil
}

func (r *UserRoleRepository) Deactivate(ctx context.Context, id string, rev rbac.Revocation) error {
	res := r.db.WithContext(ctx).
		Model(&rbacDatamodel.UserRole{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(revocationColumns(rev))
	if res.Error != nil {
		return translate("deactivate user role", res.Error)
	}
	if res.RowsAffected == 0 {
		return rbac.ErrAssignmentNotFound
	}
	return nil
}

// DeactivateByRole revokes in one statement and returns exactly the rows it
// changed, including assignments created after any earlier read.
func (r *UserRoleRepository) DeactivateByRole(ctx context.Context, roleID string, rev rbac.Revocation) ([]*rbacDatamodel.UserRole, error) {
	var rows []*rbacDatamodel.UserRole
	err := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("role_id = ? AND is_active = ?", roleID, true).
		Updates(revocationColumns(rev)).Error
	if err != nil {
		return nil, translate("deactivate role assignments", err)
	}
	return rows, nil
}

// map form so is_active=false is written; struct Updates skips zero values
func revocationColumns(rev rbac.Revocation) map[string]interface{} {
	return map[string]interface{}{
		"is_active":     false,
		"revoked_at":    rev.RevokedAt,
		"revoked_by":    rev.RevokedBy,
		"revoke_reason": rev.Reason,
	}
}
