package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/rbac-engine/internal/audit"
	"github.com/frahmantamala/rbac-engine/internal/auth"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
	rbacRedis "github.com/frahmantamala/rbac-engine/internal/rbac/redis"
	"github.com/frahmantamala/rbac-engine/internal/transport/rest"
	"github.com/frahmantamala/rbac-engine/internal/user"
)

var bootstrapOnStart bool

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server that answers authorization checks`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().BoolVar(&bootstrapOnStart, "bootstrap", true, "create missing system roles before serving")
}

func startHTTPServer() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Security.Validate(); err != nil {
		return fmt.Errorf("security config: %w", err)
	}

	ctx := context.Background()
	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer engine.Close()
	lg := engine.Logger

	if bootstrapOnStart {
		created, err := engine.RBAC.InitializeSystemRoles(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize system roles: %w", err)
		}
		lg.Info("system roles ready", "created", created)
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, buildRoutes(engine), lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("Starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	lg.Info("Server stopped")
	return nil
}

func buildRoutes(e *Engine) rest.Routes {
	checks := map[string]rest.HealthCheck{
		"postgres": e.DB.PingContext,
	}
	if e.Redis != nil {
		checks["redis"] = rbacRedis.Healthcheck(e.Redis)
	}

	tokens := auth.NewJWTTokenManager(e.Config.Security.JWTSecret, e.Config.Security.TokenTTL)
	rbacHandler := rbac.NewHandler(e.RBAC, e.Logger)

	routes := rest.Routes{
		Health:        rest.NewHealthHandler(checks),
		Authenticate:  auth.NewMiddleware(tokens, e.Logger).Authenticate,
		Guard:         auth.NewRBACAuthorization(e.RBAC, e.Logger),
		Authorize:     rbacHandler.Authorize,
		MyPermissions: rbacHandler.GetMyPermissions,
		MyRoles:       rbacHandler.GetMyRoles,
		CurrentUser:   user.NewHandler(e.Users, e.Logger).GetCurrentUser,
	}
	if e.AuditStore != nil {
		routes.AuditEvents = audit.NewHandler(e.AuditStore, e.Logger).ListEvents
		routes.AuditPermission = "audit:read"
	}
	return routes
}
