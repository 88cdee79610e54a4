package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Security      SecurityConfig      `mapstructure:"security"`
	RBAC          RBACConfig          `mapstructure:"rbac"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// RedisConfig configures the optional permission cache. An empty URL disables it.
type RedisConfig struct {
	URL            string        `mapstructure:"url"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type SecurityConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type RBACConfig struct {
	MaxInheritanceDepth int  `mapstructure:"max_inheritance_depth"`
	DefaultPageSize     int  `mapstructure:"default_page_size"`
	MaxPageSize         int  `mapstructure:"max_page_size"`
	VerifyUsers         bool `mapstructure:"verify_users"`
	// MemoryCache enables the in-process permission cache when redis is not
	// configured. Only safe with a single instance.
	MemoryCache bool `mapstructure:"memory_cache"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:            getEnv("REDIS_URL", ""),
			KeyPrefix:      getEnv("REDIS_KEY_PREFIX", "rbac"),
			CacheTTL:       getEnvAsDuration("REDIS_CACHE_TTL", 5*time.Minute),
			RetryAttempts:  getEnvAsInt("REDIS_RETRY_ATTEMPTS", 3),
			RetryInterval:  getEnvAsDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
			ConnectTimeout: getEnvAsDuration("REDIS_CONNECT_TIMEOUT", 10*time.Second),
		},
		Security: SecurityConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvAsDuration("JWT_TOKEN_TTL", 15*time.Minute),
		},
		RBAC: RBACConfig{
			MaxInheritanceDepth: getEnvAsInt("RBAC_MAX_INHERITANCE_DEPTH", 16),
			DefaultPageSize:     getEnvAsInt("RBAC_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:         getEnvAsInt("RBAC_MAX_PAGE_SIZE", 100),
			VerifyUsers:         getEnvAsBool("RBAC_VERIFY_USERS", false),
			MemoryCache:         getEnvAsBool("RBAC_MEMORY_CACHE", false),
		},
		Audit: AuditConfig{
			Enabled: getEnvAsBool("AUDIT_ENABLED", true),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Redis.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("redis config: %v", err))
	}

	if err := c.RBAC.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rbac config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *RedisConfig) Enabled() bool {
	return c.URL != ""
}

func (c *RedisConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache_ttl must be positive when redis is enabled")
	}
	return nil
}

// Validate is called by commands that verify tokens; migrations and the
// offline CLI never need a secret.
func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt_secret must be at least 16 characters")
	}
	if c.TokenTTL < 0 {
		return errors.New("token_ttl cannot be negative")
	}
	return nil
}

func (c *RBACConfig) Validate() error {
	if c.MaxInheritanceDepth < 0 {
		return errors.New("max_inheritance_depth cannot be negative")
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize <= 0 {
		return errors.New("page sizes must be positive")
	}
	if c.DefaultPageSize > c.MaxPageSize {
		return errors.New("default_page_size cannot exceed max_page_size")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported level %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	return nil
}
