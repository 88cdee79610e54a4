package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/rbac-engine/internal"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
	"github.com/frahmantamala/rbac-engine/internal/transport"
)

type Authorizer interface {
	Authorize(ctx context.Context, req rbac.AuthorizeRequest) (*rbac.Decision, error)
}

var ErrMissingPermissions = internal.NewForbiddenError("Forbidden: insufficient permissions", internal.ErrCodeMissingPermissions)

// RBACAuthorization guards routes by asking the engine about the caller
// stored on the context by Authenticate.
type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer Authorizer
}

func NewRBACAuthorization(authorizer Authorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  authorizer,
	}
}

func (ra *RBACAuthorization) RequirePermission(permission string) func(http.Handler) http.Handler {
	return ra.require(rbac.ModeAll, permission)
}

func (ra *RBACAuthorization) RequireAnyPermission(permissions ...string) func(http.Handler) http.Handler {
	return ra.require(rbac.ModeAny, permissions...)
}

func (ra *RBACAuthorization) RequireAllPermissions(permissions ...string) func(http.Handler) http.Handler {
	return ra.require(rbac.ModeAll, permissions...)
}

func (ra *RBACAuthorization) require(mode rbac.AuthorizeMode, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				ra.Logger.WarnContext(r.Context(), "authorization check failed: user not found in context")
				ra.WriteAppError(w, internal.ErrInvalidToken)
				return
			}

			decision, err := ra.authorizer.Authorize(r.Context(), rbac.AuthorizeRequest{
				UserID:      id.UserID,
				TenantID:    id.TenantID,
				Permissions: permissions,
				Mode:        mode,
			})
			if err != nil {
				ra.Logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "permissions", permissions)
				ra.HandleServiceError(w, r, err)
				return
			}

			if !decision.Allowed {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"required_permissions", permissions,
					"mode", mode,
					"missing", decision.Missing)
				ra.WriteAppError(w, ErrMissingPermissions.WithDetails(map[string]interface{}{
					"missing": decision.Missing,
					"mode":    mode,
				}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
