package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/rbac-engine/internal"
	"github.com/frahmantamala/rbac-engine/internal/transport"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, userID string) (*User, error)
}

var errUserNotFound = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetCurrentUser handles GET /me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.Logger.WarnContext(r.Context(), "GetCurrentUser: user not found in context")
		h.WriteAppError(w, internal.ErrInvalidToken)
		return
	}

	u, err := h.Service.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.WriteAppError(w, errUserNotFound)
			return
		}
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}
