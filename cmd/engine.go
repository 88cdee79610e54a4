package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/rbac-engine/internal"
	"github.com/frahmantamala/rbac-engine/internal/audit"
	"github.com/frahmantamala/rbac-engine/internal/core/events"
	"github.com/frahmantamala/rbac-engine/internal/permission"
	"github.com/frahmantamala/rbac-engine/internal/rbac"
	rbacPostgres "github.com/frahmantamala/rbac-engine/internal/rbac/postgres"
	rbacRedis "github.com/frahmantamala/rbac-engine/internal/rbac/redis"
	"github.com/frahmantamala/rbac-engine/internal/user"
	userPostgres "github.com/frahmantamala/rbac-engine/internal/user/postgres"
	"github.com/frahmantamala/rbac-engine/pkg/logger"
)

// Engine is the wired RBAC service plus the connections it owns.
type Engine struct {
	Config     *internal.Config
	Logger     *slog.Logger
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Redis      *goredis.Client
	Bus        *events.EventBus
	AuditStore *audit.Store
	Users      *user.Service
	RBAC       *rbac.Service
}

func buildEngine(ctx context.Context, cfg *internal.Config) (*Engine, error) {
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	e := &Engine{
		Config: cfg,
		Logger: lg,
		DB:     db,
		Gorm:   gdb,
		Bus:    events.NewEventBus(lg),
	}

	cache, err := e.initCache(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}

	if cfg.Audit.Enabled {
		e.AuditStore = audit.NewStore(db)
		audit.NewEventHandler(e.AuditStore, lg).RegisterEventHandlers(e.Bus)
	}

	e.Users = user.NewService(userPostgres.NewUserRepository(gdb), lg)

	opts := []rbac.Option{
		rbac.WithEventPublisher(e.Bus),
		rbac.WithCache(cache),
		rbac.WithMaxInheritanceDepth(cfg.RBAC.MaxInheritanceDepth),
		rbac.WithPageSize(cfg.RBAC.DefaultPageSize, cfg.RBAC.MaxPageSize),
	}
	if cfg.RBAC.VerifyUsers {
		opts = append(opts, rbac.WithUserDirectory(e.Users))
	}

	e.RBAC = rbac.NewService(
		rbacPostgres.NewRoleRepository(gdb),
		rbacPostgres.NewUserRoleRepository(gdb),
		permission.Default(),
		lg,
		opts...,
	)
	return e, nil
}

// initCache returns nil when no cache is configured.
func (e *Engine) initCache(ctx context.Context) (rbac.PermissionCache, error) {
	if !e.Config.Redis.Enabled() {
		if e.Config.RBAC.MemoryCache {
			e.Logger.Warn("redis not configured, using in-process permission cache; run a single instance only")
			return rbac.NewMemoryCache(e.Config.Redis.CacheTTL), nil
		}
		e.Logger.Info("redis not configured, permission cache disabled")
		return nil, nil
	}

	client, err := rbacRedis.Connect(ctx, e.Config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	e.Redis = client
	return rbacRedis.NewPermissionCache(client, e.Config.Redis.KeyPrefix, e.Config.Redis.CacheTTL), nil
}

// Close waits for in-flight audit handlers, then releases connections.
func (e *Engine) Close() {
	e.Bus.Wait()
	if e.Redis != nil {
		if err := e.Redis.Close(); err != nil {
			e.Logger.Error("redis close error", "error", err)
		}
	}
	if err := e.DB.Close(); err != nil {
		e.Logger.Error("database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := internal.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm so both see the same connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}
