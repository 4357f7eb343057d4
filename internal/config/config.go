// Package config loads and validates exporter configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all exporter configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Export    ExportConfig    `mapstructure:"export"`
	DB        DBConfig        `mapstructure:"db"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Events    EventsConfig    `mapstructure:"events"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TelegramConfig selects and parameterizes the remote client.
type TelegramConfig struct {
	Provider string `mapstructure:"provider"`
	APIID    int    `mapstructure:"api_id"`
	APIHash  string `mapstructure:"api_hash"`
	Session  string `mapstructure:"session"`
}

// ExportConfig governs output layout and pagination.
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	BatchSize int    `mapstructure:"batch_size"`
}

// DBConfig controls the optional relational record store.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// ArtifactsConfig controls archival of finished export files.
type ArtifactsConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// EventsConfig holds metadata for run-completion notifications.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// MetricsConfig controls the operational HTTP listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// RateLimitConfig paces outbound requests client-side. Zero RPS
// disables pacing entirely.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TGEXPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("telegram.provider", "noop")
	v.SetDefault("telegram.session", "tgexport.session")
	v.SetDefault("export.output_dir", "exports")
	v.SetDefault("export.batch_size", 100)
	v.SetDefault("db.provider", "noop")
	v.SetDefault("db.table", "export_records")
	v.SetDefault("artifacts.provider", "noop")
	v.SetDefault("artifacts.prefix", "runs")
	v.SetDefault("events.provider", "noop")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("ratelimit.rps", 1)
	v.SetDefault("ratelimit.burst", 1)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir must be set")
	}
	if c.Export.BatchSize < 1 || c.Export.BatchSize > 100 {
		return fmt.Errorf("export.batch_size must be in [1, 100]")
	}
	if c.Telegram.Provider != "noop" {
		return fmt.Errorf("unknown telegram.provider %q", c.Telegram.Provider)
	}
	switch c.DB.Provider {
	case "noop":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown db.provider %q", c.DB.Provider)
	}
	switch c.Artifacts.Provider {
	case "noop":
	case "gcs":
		if c.Artifacts.Bucket == "" {
			return fmt.Errorf("artifacts.bucket must be set when artifacts.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown artifacts.provider %q", c.Artifacts.Provider)
	}
	switch c.Events.Provider {
	case "noop":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicID == "" {
			return fmt.Errorf("events.project_id and events.topic_id must be set when events.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown events.provider %q", c.Events.Provider)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must be >= 0")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("ratelimit.burst must be >= 1 when pacing is enabled")
	}
	return nil
}
