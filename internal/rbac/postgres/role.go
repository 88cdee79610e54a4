package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	rbacDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) rbac.RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Create(ctx context.Context, role *rbacDatamodel.Role) error {
	return translate("create role", r.db.WithContext(ctx).Create(role).Error)
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*rbacDatamodel.Role, error) {
	var role rbacDatamodel.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate("get role by id", err)
	}
	return &role, nil
}

// GetByName looks in exactly one scope; tenantID "" is the global scope.
func (r *RoleRepository) GetByName(ctx context.Context, name, tenantID string) (*rbacDatamodel.Role, error) {
	var role rbacDatamodel.Role
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, name).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate("get role by name", err)
	}
	return &role, nil
}

func (r *RoleRepository) Search(ctx context.Context, q rbac.RoleQuery) ([]*rbacDatamodel.Role, int64, error) {
	tx := r.db.WithContext(ctx).Model(&rbacDatamodel.Role{})

	if q.TenantID != rbac.GlobalTenant {
		tx = tx.Where("tenant_id IN ?", []string{q.TenantID, rbac.GlobalTenant})
	}
	if text := strings.TrimSpace(q.Text); text != "" {
		like := "%" + escapeLike(strings.ToLower(text)) + "%"
		tx = tx.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(display_name) LIKE ? ESCAPE '\\')", like, like)
	}
	if q.Type != "" {
		tx = tx.Where("type = ?", string(q.Type))
	}
	if q.IsActive != nil {
		tx = tx.Where("is_active = ?", *q.IsActive)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, translate("count roles", err)
	}

	var roles []*rbacDatamodel.Role
	page := tx.Order("name ASC").Order("tenant_id ASC")
	if q.Limit > 0 {
		page = page.Limit(q.Limit)
	}
	if q.Offset > 0 {
		page = page.Offset(q.Offset)
	}
	if err := page.Find(&roles).Error; err != nil {
		return nil, 0, translate("search roles", err)
	}
	return roles, total, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *rbacDatamodel.Role) error {
	return translate("update role", r.db.WithContext(ctx).Save(role).Error)
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	return translate("delete role", r.db.WithContext(ctx).Where("id = ?", id).Delete(&rbacDatamodel.Role{}).Error)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
