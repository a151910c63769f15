package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. TASKSYNC_SYNC_BATCH_SIZE for sync.batch_size.
const EnvPrefix = "TASKSYNC"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// An empty configPath skips the file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "./data/tasks.db")
	v.SetDefault("database.max_open_conns", 0)

	v.SetDefault("remote.base_url", "http://localhost:4000/api")
	v.SetDefault("remote.timeout", "10s")
	v.SetDefault("remote.strict_probe", false)

	v.SetDefault("sync.batch_size", 10)
	v.SetDefault("sync.interval", "30s")
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.backoff_base", "1s")
	v.SetDefault("sync.backoff_max", "1m")

	v.SetDefault("authority.port", 4000)
	v.SetDefault("authority.database.driver", "sqlite")
	v.SetDefault("authority.database.url", "./data/authority.db")
	v.SetDefault("authority.database.max_open_conns", 0)
}
