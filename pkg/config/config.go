// Package config loads the KPI platform's configuration from an optional
// YAML file plus environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig carries a host and port. No HTTP routing is in scope and
// nothing in the module reads these values.
type ServerConfig struct {
	Host string `json:"host" yaml:"host" env:"SERVER_HOST"`
	Port int    `json:"port" yaml:"port" env:"SERVER_PORT"`
}

// DatabaseConfig controls persistence for the repository layer.
type DatabaseConfig struct {
	Driver          string `json:"driver" yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `json:"dsn" yaml:"dsn" env:"DB_URL"`
	MaxOpenConns    int    `json:"max_open_conns" yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
	MigrateOnStart  bool   `json:"migrate_on_start" yaml:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START"`
}

// EventStoreConfig controls the append-only DomainEvent store. It
// defaults to the same DSN as DatabaseConfig.
type EventStoreConfig struct {
	DSN string `json:"dsn" yaml:"dsn" env:"EVENT_STORE_URL"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" yaml:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// SecurityConfig controls KDF and at-rest secrets.
type SecurityConfig struct {
	PasswordPepper string `json:"password_pepper" yaml:"password_pepper" env:"PASSWORD_PEPPER"`
}

// AuthConfig controls identity/tenant-context token handling.
type AuthConfig struct {
	JWTSecret           string `json:"jwt_secret" yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	RateLimitAuthPerMin int    `json:"rate_limit_auth_per_min" yaml:"rate_limit_auth_per_min" env:"RATE_LIMIT_AUTH_PER_MIN"`
}

// EventBusConfig controls the collect/flush-on-commit dispatcher.
type EventBusConfig struct {
	WorkerPoolSize  int `json:"event_worker_pool_size" yaml:"event_worker_pool_size" env:"EVENT_WORKER_POOL_SIZE"`
	QueueSize       int `json:"event_queue_size" yaml:"event_queue_size" env:"EVENT_QUEUE_SIZE"`
	CriticalWaitMS  int `json:"critical_wait_ms" yaml:"critical_wait_ms" env:"EVENT_CRITICAL_WAIT_MS"`
	HandlerDeadline int `json:"handler_deadline_seconds" yaml:"handler_deadline_seconds" env:"EVENT_HANDLER_DEADLINE_SECONDS"`
}

// CacheConfig controls the KPI read-through cache.
type CacheConfig struct {
	MaxEntries int `json:"cache_max_entries" yaml:"cache_max_entries" env:"CACHE_MAX_ENTRIES"`
}

// ForecastConfig controls default forecasting parameters.
type ForecastConfig struct {
	DefaultDays int `json:"forecast_default_days" yaml:"forecast_default_days" env:"FORECAST_DEFAULT_DAYS"`
}

// CapacityConfig controls the capacity-planning workbook.
type CapacityConfig struct {
	HistoryLimit int `json:"capacity_history_limit" yaml:"capacity_history_limit" env:"CAPACITY_HISTORY_LIMIT"`
}

// IngestionConfig controls the bulk ingestion pipeline.
type IngestionConfig struct {
	CrossTenantUploadsAllowed bool `json:"cross_tenant_uploads_allowed" yaml:"cross_tenant_uploads_allowed" env:"CROSS_TENANT_UPLOADS_ALLOWED"`
	MaxReportedErrors         int  `json:"max_reported_errors" yaml:"max_reported_errors" env:"INGESTION_MAX_REPORTED_ERRORS"`
}

// RuntimeConfig controls process lifecycle.
type RuntimeConfig struct {
	ShutdownGraceSeconds int `json:"shutdown_grace_seconds" yaml:"shutdown_grace_seconds" env:"SHUTDOWN_GRACE_SECONDS"`
}

// ReportJobConfig configures one tenant's periodic report job for the
// reporting scheduler.
type ReportJobConfig struct {
	ClientID    string `json:"client_id" yaml:"client_id"`
	Schedule    string `json:"schedule" yaml:"schedule"` // cron expression, e.g. "0 6 * * *"
	Kind        string `json:"kind" yaml:"kind"`         // reporting.Kind string form
	WindowHours int    `json:"window_hours" yaml:"window_hours"`
	ActorUserID string `json:"actor_user_id" yaml:"actor_user_id"`
}

// ReportingConfig controls the reporting orchestrator's periodic
// scheduler: how often it ticks and which per-tenant jobs it runs.
type ReportingConfig struct {
	TickIntervalSeconds int               `json:"tick_interval_seconds" yaml:"tick_interval_seconds" env:"REPORT_TICK_INTERVAL_SECONDS"`
	Jobs                []ReportJobConfig `json:"jobs" yaml:"jobs"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Database   DatabaseConfig   `json:"database" yaml:"database"`
	EventStore EventStoreConfig `json:"event_store" yaml:"event_store"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Security   SecurityConfig   `json:"security" yaml:"security"`
	Auth       AuthConfig       `json:"auth" yaml:"auth"`
	EventBus   EventBusConfig   `json:"event_bus" yaml:"event_bus"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Forecast   ForecastConfig   `json:"forecast" yaml:"forecast"`
	Capacity   CapacityConfig   `json:"capacity" yaml:"capacity"`
	Ingestion  IngestionConfig  `json:"ingestion" yaml:"ingestion"`
	Reporting  ReportingConfig  `json:"reporting" yaml:"reporting"`
	Runtime    RuntimeConfig    `json:"runtime" yaml:"runtime"`
}

// New returns a configuration populated with built-in defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			MigrateOnStart:  true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "manufab",
		},
		Auth: AuthConfig{
			RateLimitAuthPerMin: 10,
		},
		EventBus: EventBusConfig{
			WorkerPoolSize:  0, // 0 means "2x CPU count", resolved at wiring time
			QueueSize:       1024,
			CriticalWaitMS:  100,
			HandlerDeadline: 2,
		},
		Cache: CacheConfig{MaxEntries: 10_000},
		Forecast: ForecastConfig{
			DefaultDays: 14,
		},
		Capacity: CapacityConfig{HistoryLimit: 50},
		Ingestion: IngestionConfig{
			CrossTenantUploadsAllowed: false,
			MaxReportedErrors:         100,
		},
		Reporting: ReportingConfig{TickIntervalSeconds: 60},
		Runtime:   RuntimeConfig{ShutdownGraceSeconds: 30},
	}
}

// ConnectionString returns the configured DSN.
func (c DatabaseConfig) ConnectionString() string {
	return c.DSN
}

// Load loads configuration from file (if present) and environment
// variables, with environment variables taking precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	if cfg.Database.DSN != "" && cfg.EventStore.DSN == "" {
		cfg.EventStore.DSN = cfg.Database.DSN
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.Database.DSN != "" && cfg.EventStore.DSN == "" {
		cfg.EventStore.DSN = cfg.Database.DSN
	}
	return cfg, nil
}

// LoadConfig reads configuration from a JSON file, applied over the
// built-in defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
