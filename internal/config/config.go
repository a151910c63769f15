package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Remote    RemoteConfig    `mapstructure:"remote"    validate:"required"`
	Sync      SyncConfig      `mapstructure:"sync"      validate:"required"`
	Authority AuthorityConfig `mapstructure:"authority" validate:"required"`
}

// ServerConfig contains the local API server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// LogConfig controls log formatting and optional file output.
// File output is rotated when File is set.
type LogConfig struct {
	Format     string `mapstructure:"format"       validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups"  validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// DatabaseConfig selects and tunes the local store.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"         validate:"required,oneof=sqlite postgres"`
	URL          string `mapstructure:"url"            validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// RemoteConfig points the sync engine at the remote authority.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gt=0"`

	// StrictProbe makes the connectivity probe require a 2xx response.
	StrictProbe bool `mapstructure:"strict_probe"`
}

// SyncConfig tunes batching and the background worker.
type SyncConfig struct {
	BatchSize   int           `mapstructure:"batch_size"   validate:"required,gte=1"`
	Interval    time.Duration `mapstructure:"interval"     validate:"gt=0"`
	MaxRetries  int           `mapstructure:"max_retries"  validate:"gte=0"`
	BackoffBase time.Duration `mapstructure:"backoff_base" validate:"gt=0"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"  validate:"gtefield=BackoffBase"`
}

// AuthorityConfig configures the reference remote authority server.
type AuthorityConfig struct {
	Port     int            `mapstructure:"port"     validate:"required,gt=0,lt=65536"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
}
