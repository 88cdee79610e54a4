package rbac

import "time"

type UserRole struct {
	ID           string     `gorm:"column:id;primaryKey"`
	UserID       string     `gorm:"column:user_id;not null;index"`
	RoleID       string     `gorm:"column:role_id;not null;index"`
	TenantID     string     `gorm:"column:tenant_id;not null"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	AssignedAt   time.Time  `gorm:"column:assigned_at;not null"`
	AssignedBy   string     `gorm:"column:assigned_by"`
	RevokedAt    *time.Time `gorm:"column:revoked_at"`
	RevokedBy    string     `gorm:"column:revoked_by"`
	Reason       string     `gorm:"column:reason"`
	RevokeReason string     `gorm:"column:revoke_reason"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
