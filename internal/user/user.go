// Package user reads the identity service's users so role assignment can
// refuse unknown accounts. The engine never writes users.
package user

import (
	"context"
	"errors"
	"time"

	userDatamodel "github.com/frahmantamala/rbac-engine/internal/core/datamodel/user"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
}

var ErrUserNotFound = errors.New("user not found")

func FromDataModel(u *userDatamodel.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
