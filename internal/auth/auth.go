// Package auth turns a bearer token into the (user, tenant) identity the RBAC
// engine decides on, and guards routes with permission checks.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity issued by the identity service. TenantID is
// empty for platform-level operators.
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity is what handlers need after authentication.
type Identity struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id,omitempty"`
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, TenantID: c.TenantID}
}
