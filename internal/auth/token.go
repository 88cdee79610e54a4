package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/rbac-engine/internal"
)

const DefaultTokenTTL = 15 * time.Minute

type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// JWTTokenManager signs and verifies HS256 identity tokens. The engine only
// validates in production; GenerateToken serves the CLI and tests.
type JWTTokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTTokenManager(secret string, ttl time.Duration) *JWTTokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTTokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// GenerateToken creates a signed token for userID scoped to tenantID
func (j *JWTTokenManager) GenerateToken(userID, tenantID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := j.now()

	claims := &Claims{
		UserID:   userID,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired.WithCause(err)
		}
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
