// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nichelabs/discovery-engine/internal/discovery"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Auth      AuthConfig        `mapstructure:"auth"`
	Discovery DiscoveryConfig   `mapstructure:"discovery"`
	Places    PlacesConfig      `mapstructure:"places"`
	DB        DBConfig          `mapstructure:"db"`
	PubSub    PubSubConfig      `mapstructure:"pubsub"`
	Archive   ArchiveConfig     `mapstructure:"archive"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	Niches    []discovery.Niche `mapstructure:"niches"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DiscoveryConfig governs orchestrator and collection pipeline behavior.
type DiscoveryConfig struct {
	GridDelaySeconds  int     `mapstructure:"grid_delay_seconds"`
	FanOut            int     `mapstructure:"fan_out"`
	DetailQPS         float64 `mapstructure:"detail_qps"`
	SearchRetries     int     `mapstructure:"search_retries"`
	RetryBackoffMs    int     `mapstructure:"retry_backoff_ms"`
	ImportTopic       string  `mapstructure:"import_topic"`
	UseMemoryProvider bool    `mapstructure:"use_memory_provider"`
}

// PlacesConfig configures the Google Places provider.
type PlacesConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// PubSubConfig holds metadata for imported-business notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig sets the bucket for raw provider payload archival.
type ArchiveConfig struct {
	GCSBucket   string `mapstructure:"gcs_bucket"`
	ContentType string `mapstructure:"content_type"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DISCOVERY")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("discovery.grid_delay_seconds", 2)
	v.SetDefault("discovery.fan_out", 4)
	v.SetDefault("discovery.detail_qps", 10)
	v.SetDefault("discovery.search_retries", 2)
	v.SetDefault("discovery.retry_backoff_ms", 500)
	v.SetDefault("discovery.import_topic", "business-imports")
	v.SetDefault("discovery.use_memory_provider", false)
	v.SetDefault("places.timeout_seconds", 10)
	v.SetDefault("db.max_open_conns", 8)
	v.SetDefault("db.min_idle_conns", 2)
	v.SetDefault("archive.content_type", "application/json")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Discovery.FanOut <= 0 {
		return fmt.Errorf("discovery.fan_out must be > 0")
	}
	if c.Discovery.DetailQPS < 0 {
		return fmt.Errorf("discovery.detail_qps must be >= 0")
	}
	if !c.Discovery.UseMemoryProvider && c.Places.APIKey == "" {
		return fmt.Errorf("places.api_key must be set unless discovery.use_memory_provider is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// GridDelay converts the configured courtesy delay into a duration.
func (c Config) GridDelay() time.Duration {
	return time.Duration(c.Discovery.GridDelaySeconds) * time.Second
}

// RetryBackoff converts the configured backoff into a duration.
func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Discovery.RetryBackoffMs) * time.Millisecond
}
