package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/rbac-engine/internal"
	"github.com/frahmantamala/rbac-engine/internal/transport"
)

type Lister interface {
	List(ctx context.Context, f Filter) ([]Record, error)
}

type Handler struct {
	*transport.BaseHandler
	store Lister
}

func NewHandler(store Lister, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		store:       store,
	}
}

type ListResponse struct {
	Records []Record `json:"records"`
}

// ListEvents handles GET /audit. A tenant-bound caller only sees its own
// tenant whatever the query says.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		TenantID:   q.Get("tenant_id"),
		ActorID:    q.Get("actor_id"),
		Action:     q.Get("action"),
		TargetType: q.Get("target_type"),
		TargetID:   q.Get("target_id"),
	}
	if tenantID := internal.TenantIDFromContext(r.Context()); tenantID != "" {
		f.TenantID = tenantID
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.WriteAppError(w, internal.NewValidationFieldError("since", "since must be an RFC3339 timestamp", internal.ErrCodeValidationFailed))
			return
		}
		f.Since = since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.WriteAppError(w, internal.NewValidationFieldError("limit", "limit must be a non-negative integer", internal.ErrCodeValidationFailed))
			return
		}
		f.Limit = limit
	}

	records, err := h.store.List(r.Context(), f)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListResponse{Records: records})
}
