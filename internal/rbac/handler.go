package rbac

import (
	"context"
	"log/slog"
	"net/http"

	appErrors "github.com/frahmantamala/rbac-engine/internal"
	"github.com/frahmantamala/rbac-engine/internal/permission"
	"github.com/frahmantamala/rbac-engine/internal/transport"
)

// PermissionInspectOthers lets a caller run capability checks for users other
// than themselves.
const PermissionInspectOthers = "users:read"

var ErrCrossTenantCheck = appErrors.NewForbiddenError("Cannot inspect another tenant", appErrors.ErrCodeMissingPermissions)

type HandlerAPI interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*Decision, error)
	GetUserPermissions(ctx context.Context, userID, tenantID string) (permission.Set, error)
	GetUserRoles(ctx context.Context, userID, tenantID string) ([]*Role, error)
	HasPermission(ctx context.Context, userID, tenantID, perm string) (bool, error)
}

type Handler struct {
	*transport.BaseHandler
	Service HandlerAPI
}

func NewHandler(svc HandlerAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

type PermissionsResponse struct {
	UserID      string   `json:"user_id"`
	TenantID    string   `json:"tenant_id,omitempty"`
	Permissions []string `json:"permissions"`
}

type RolesResponse struct {
	UserID   string  `json:"user_id"`
	TenantID string  `json:"tenant_id,omitempty"`
	Roles    []*Role `json:"roles"`
}

// Authorize handles POST /authorize. user_id and tenant_id default to the
// caller. Checking someone else needs users:read, and a tenant-bound caller
// can never look outside their own tenant.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	callerID, callerTenant, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req AuthorizeRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if req.UserID == "" {
		req.UserID = callerID
	}
	if req.TenantID == "" {
		req.TenantID = callerTenant
	}

	if callerTenant != GlobalTenant && req.TenantID != callerTenant {
		h.Logger.WarnContext(r.Context(), "cross-tenant authorization check refused",
			"caller_id", callerID, "target_tenant", req.TenantID)
		h.WriteAppError(w, ErrCrossTenantCheck)
		return
	}
	if req.UserID != callerID {
		allowed, err := h.Service.HasPermission(r.Context(), callerID, callerTenant, PermissionInspectOthers)
		if err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
		if !allowed {
			h.WriteAppError(w, appErrors.NewForbiddenError("Forbidden: insufficient permissions", appErrors.ErrCodeMissingPermissions).
				WithDetails(map[string]interface{}{"missing": []string{PermissionInspectOthers}}))
			return
		}
	}

	decision, err := h.Service.Authorize(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, decision)
}

// GetMyPermissions handles GET /me/permissions
func (h *Handler) GetMyPermissions(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := h.caller(w, r)
	if !ok {
		return
	}

	perms, err := h.Service.GetUserPermissions(r.Context(), userID, tenantID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{
		UserID:      userID,
		TenantID:    tenantID,
		Permissions: perms.Sorted(),
	})
}

// GetMyRoles handles GET /me/roles
func (h *Handler) GetMyRoles(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := h.caller(w, r)
	if !ok {
		return
	}

	roles, err := h.Service.GetUserRoles(r.Context(), userID, tenantID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolesResponse{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    roles,
	})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID := appErrors.UserIDFromContext(r.Context())
	if userID == "" {
		h.Logger.WarnContext(r.Context(), "caller identity missing from context")
		h.WriteAppError(w, appErrors.ErrInvalidToken)
		return "", "", false
	}
	return userID, appErrors.TenantIDFromContext(r.Context()), true
}
