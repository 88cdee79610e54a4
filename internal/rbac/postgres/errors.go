package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-engine/internal/rbac"
)

const pgUniqueViolation = "23505"

// translate maps unique-index violations to rbac.ErrDuplicateKey and wraps
// everything else with the failed operation.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return fmt.Errorf("%s: %w", op, rbac.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
