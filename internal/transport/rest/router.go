package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/rbac-engine/internal/transport/middleware"
)

// Guard builds permission middleware; auth.RBACAuthorization satisfies it.
type Guard interface {
	RequirePermission(permission string) func(http.Handler) http.Handler
}

// Routes collects the handlers the router mounts. Nil handlers are skipped.
type Routes struct {
	Health       *HealthHandler
	Authenticate func(http.Handler) http.Handler
	Guard        Guard

	Authorize       http.HandlerFunc
	MyPermissions   http.HandlerFunc
	MyRoles         http.HandlerFunc
	CurrentUser     http.HandlerFunc
	AuditEvents     http.HandlerFunc
	AuditPermission string
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		if routes.Health != nil {
			r.Get("/health", routes.Health.healthCheckHandler)
			r.Get("/ping", routes.Health.pingHandler)
		}

		if routes.Authenticate == nil {
			logger.Warn("no authentication middleware configured, protected routes disabled")
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(routes.Authenticate)

			if routes.Authorize != nil {
				pr.Post("/authorize", routes.Authorize)
			}
			if routes.CurrentUser != nil {
				pr.Get("/me", routes.CurrentUser)
			}
			if routes.MyPermissions != nil {
				pr.Get("/me/permissions", routes.MyPermissions)
			}
			if routes.MyRoles != nil {
				pr.Get("/me/roles", routes.MyRoles)
			}

			if routes.AuditEvents != nil && routes.Guard != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(routes.Guard.RequirePermission(routes.AuditPermission))
					ar.Get("/audit", routes.AuditEvents)
				})
			}
		})
	})
}
