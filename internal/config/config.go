// Package config provides bridge configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"

	"github.com/morezero/viverse-bridge/pkg/semver"
)

const logPrefix = "config:LoadConfig"

// Config holds viverse-bridge configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"viverse-bridge"`

	// Subject overrides (empty = commsutil defaults)
	HostSubjectPrefix   string `envconfig:"HOST_SUBJECT_PREFIX"`
	EventSubject        string `envconfig:"EVENT_SUBJECT"`
	ForwardEventPrefix  string `envconfig:"FORWARD_EVENT_PREFIX"`
	ForwardEventSubject string `envconfig:"FORWARD_EVENT_SUBJECT"`

	// SDK
	ClientID          string `envconfig:"VIVERSE_CLIENT_ID"`
	VersionConstraint string `envconfig:"SDK_VERSION_CONSTRAINT" default:">=1.0.0"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"25s"`
	InitTimeout    time.Duration `envconfig:"INIT_TIMEOUT" default:"30s"`

	// Database (optional: the journal is disabled when empty)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// Journal retention and write guard
	JournalRetention       time.Duration `envconfig:"JOURNAL_RETENTION" default:"168h"`
	JournalPruneSchedule   string        `envconfig:"JOURNAL_PRUNE_SCHEDULE" default:"@hourly"`
	JournalRatePerSec      float64       `envconfig:"JOURNAL_RATE_PER_SEC" default:"50"`
	JournalBurst           int           `envconfig:"JOURNAL_BURST" default:"100"`
	JournalBreakerFailures uint32        `envconfig:"JOURNAL_BREAKER_FAILURES" default:"5"`
	JournalBreakerTimeout  time.Duration `envconfig:"JOURNAL_BREAKER_TIMEOUT" default:"30s"`

	// HTTP health endpoint
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Simulator
	SimFixturesFile string `envconfig:"SIM_FIXTURES_FILE"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// JournalEnabled reports whether diagnostics are persisted to Postgres.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidateForServe checks required config when running the bridge.
func (c *Config) ValidateForServe() error {
	if c.ClientID == "" {
		return fmt.Errorf("%s - VIVERSE_CLIENT_ID is required for serve", logPrefix)
	}
	if err := semver.ValidateConstraint(c.VersionConstraint); err != nil {
		return fmt.Errorf("%s - SDK_VERSION_CONSTRAINT: %w", logPrefix, err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.InitTimeout <= 0 {
		return fmt.Errorf("%s - INIT_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%s - HTTP_PORT %d out of range", logPrefix, c.HTTPPort)
	}
	if c.JournalEnabled() && c.PruneEnabled() {
		if _, err := cron.ParseStandard(c.JournalPruneSchedule); err != nil {
			return fmt.Errorf("%s - JOURNAL_PRUNE_SCHEDULE: %w", logPrefix, err)
		}
	}
	return nil
}

// PruneEnabled reports whether old journal entries are deleted on a schedule.
func (c *Config) PruneEnabled() bool {
	return c.JournalRetention > 0 && c.JournalPruneSchedule != ""
}

// ValidateForDB checks required config when running DB commands (migrate, ensure-db, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
