package rbac

import "time"

type Role struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Name           string    `gorm:"column:name;not null;uniqueIndex:idx_roles_tenant_name"`
	DisplayName    string    `gorm:"column:display_name;not null"`
	Description    string    `gorm:"column:description"`
	Type           string    `gorm:"column:type;not null"`
	Permissions    []string  `gorm:"column:permissions;serializer:json;type:text;not null"`
	InheritedRoles []string  `gorm:"column:inherited_roles;serializer:json;type:text;not null"`
	TenantID       string    `gorm:"column:tenant_id;not null;uniqueIndex:idx_roles_tenant_name"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	CreatedBy      string    `gorm:"column:created_by"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}
