package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/rbac-engine/internal"
	"github.com/frahmantamala/rbac-engine/internal/transport"
	"github.com/frahmantamala/rbac-engine/pkg/logger"
)

type Middleware struct {
	*transport.BaseHandler
	tokens TokenValidator
}

func NewMiddleware(tokens TokenValidator, lg *slog.Logger) *Middleware {
	return &Middleware{
		BaseHandler: transport.NewBaseHandler(lg),
		tokens:      tokens,
	}
}

// Authenticate requires a valid bearer token and stores the caller's user
// and tenant on the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.ExtractTokenFromHeader(r)
		if token == "" {
			m.Logger.WarnContext(r.Context(), "auth middleware: missing authorization token")
			m.WriteAppError(w, internal.ErrInvalidToken)
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			m.Logger.WarnContext(r.Context(), "token validation failed", "error", err)
			if appErr, ok := internal.IsAppError(err); ok {
				m.WriteAppError(w, appErr)
				return
			}
			m.WriteAppError(w, internal.ErrInvalidToken)
			return
		}

		ctx := WithIdentity(r.Context(), claims.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = internal.ContextWithUserID(ctx, id.UserID)
	ctx = internal.ContextWithTenantID(ctx, id.TenantID)
	return logger.With(ctx, "user_id", id.UserID, "tenant_id", id.TenantID)
}

// IdentityFromContext returns the authenticated caller, ok is false when the
// request never went through Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	userID := internal.UserIDFromContext(ctx)
	if userID == "" {
		return Identity{}, false
	}
	return Identity{UserID: userID, TenantID: internal.TenantIDFromContext(ctx)}, true
}
