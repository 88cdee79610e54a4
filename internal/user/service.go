package user

import (
	"context"
	"fmt"
	"log/slog"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, userID string) (*User, error) {
	row, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if row == nil {
		return nil, ErrUserNotFound
	}
	return FromDataModel(row), nil
}

// Exists reports whether userID names an active account. Deactivated users
// count as missing so they cannot receive new roles.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	row, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	if row == nil {
		s.logger.DebugContext(ctx, "user not in directory", "user_id", userID)
		return false, nil
	}
	return row.IsActive, nil
}
