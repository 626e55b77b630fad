// Package config provides configuration management for the BECS core.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, SERVER_PORT)
// 3. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Audit failure modes. Fail-open logs a failed ledger write and lets the
// business action stand; fail-closed propagates the failure to the caller.
const (
	AuditFailOpen   = "fail-open"
	AuditFailClosed = "fail-closed"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	River     RiverConfig     `mapstructure:"river"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Inventory InventoryConfig `mapstructure:"inventory"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// One shared pgx pool serves repositories and River.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	AuditPoolSize   int `mapstructure:"audit_pool_size"`
}

// AuditConfig contains audit ledger settings.
type AuditConfig struct {
	// HashPepper is the server-side secret mixed into every chain hash.
	// It must stay stable for the life of the ledger or verification of
	// older entries becomes impossible.
	HashPepper string `mapstructure:"hash_pepper"`

	// FailureMode decides whether a failed ledger write blocks the
	// business action ("fail-closed") or is logged and ignored
	// ("fail-open", the default).
	FailureMode string `mapstructure:"failure_mode"`

	// VerifyInterval is the period of the background chain verification job.
	VerifyInterval time.Duration `mapstructure:"verify_interval"`
}

// InventoryConfig contains stock monitoring settings.
type InventoryConfig struct {
	// ONegFloor is the available O-negative count below which the stock
	// watcher raises a shortage signal.
	ONegFloor int `mapstructure:"oneg_floor"`

	// StockWatchInterval is the period of the background stock watcher job.
	StockWatchInterval time.Duration `mapstructure:"stock_watch_interval"`

	// RarityTablePath optionally points at a YAML frequency-weight
	// override; empty means the built-in table.
	RarityTablePath string `mapstructure:"rarity_table_path"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/becs")

	// Environment variable override, no prefix: DATABASE_URL, SERVER_PORT,
	// AUDIT_HASH_PEPPER, INVENTORY_ONEG_FLOOR, ...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Audit.HashPepper == "" {
		return fmt.Errorf("audit.hash_pepper must not be empty")
	}
	if len(c.Audit.HashPepper) < 16 {
		return fmt.Errorf("audit.hash_pepper must be at least 16 characters")
	}
	switch c.Audit.FailureMode {
	case AuditFailOpen, AuditFailClosed:
	default:
		return fmt.Errorf("audit.failure_mode must be %q or %q, got %q",
			AuditFailOpen, AuditFailClosed, c.Audit.FailureMode)
	}
	if c.Inventory.ONegFloor < 0 {
		return fmt.Errorf("inventory.oneg_floor must not be negative")
	}
	return nil
}

// ensureSecrets auto-generates a missing hash pepper on first boot so a dev
// deployment works out of the box. A generated pepper is process-local:
// entries hashed with it cannot be verified after a restart, hence the loud
// warning.
func (c *Config) ensureSecrets() error {
	if c.Audit.HashPepper == "" {
		pepper, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate audit pepper: %w", err)
		}
		c.Audit.HashPepper = pepper
		logBootstrapWarn(
			"auto-generated audit.hash_pepper; set AUDIT_HASH_PEPPER env var or chain verification will break across restarts",
			zap.Int("length", len(pepper)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database (shared pool)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "becs")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "becs")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 10)
	v.SetDefault("river.completed_job_retention_period", "24h")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 100)
	v.SetDefault("worker.audit_pool_size", 20)

	// Audit ledger. The empty pepper default exists so AutomaticEnv resolves
	// AUDIT_HASH_PEPPER; ensureSecrets fills it when still unset.
	v.SetDefault("audit.hash_pepper", "")
	v.SetDefault("audit.failure_mode", AuditFailOpen)
	v.SetDefault("audit.verify_interval", "24h")

	// Inventory monitoring
	v.SetDefault("inventory.oneg_floor", 3)
	v.SetDefault("inventory.stock_watch_interval", "1h")
	v.SetDefault("inventory.rarity_table_path", "")
}
