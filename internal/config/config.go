// Package config loads server configuration from the environment via
// viper, mirroring the teacher's CLI config package (one Config struct,
// unmarshaled from whatever viper currently holds) generalized from
// CLI flags to a long-running server's environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of server configuration, bound from environment
// variables (spec.md §4.14 persistence knobs plus transport/listener
// addresses).
type Config struct {
	DatabaseURL             string        `mapstructure:"database_url"`
	DatabaseURLFile         string        `mapstructure:"database_url_file"`
	DatabaseQueryTimeout    time.Duration `mapstructure:"database_query_timeout"`
	DatabaseConnectTimeout  time.Duration `mapstructure:"database_connect_timeout"`
	DatabasePoolTimeout     time.Duration `mapstructure:"database_pool_timeout"`
	UsePgBouncer            bool          `mapstructure:"use_pgbouncer"`

	A2ABaseURL     string `mapstructure:"a2a_base_url"`
	MCPListenAddr  string `mapstructure:"mcp_listen_addr"`
	A2AListenAddr  string `mapstructure:"a2a_listen_addr"`

	GormLogLevel string `mapstructure:"gorm_log_level"`

	DeliveryWebhookInterval time.Duration `mapstructure:"delivery_webhook_interval"`
	StatusSchedulerInterval time.Duration `mapstructure:"status_scheduler_interval"`

	// JWTSigningSecret enables the optional JWT principal credential format
	// (spec.md's alternative to an opaque per-principal access token). Empty
	// disables JWT parsing entirely; opaque tokens always keep working.
	JWTSigningSecret string `mapstructure:"jwt_signing_secret"`
}

// defaults mirror the teacher's PersistentFlags defaults, adapted from CLI
// flags to env-backed server settings.
var defaults = map[string]any{
	"database_query_timeout":   30 * time.Second,
	"database_connect_timeout": 10 * time.Second,
	"database_pool_timeout":    30 * time.Second,
	"use_pgbouncer":            false,
	"a2a_base_url":             "http://localhost:8091",
	"mcp_listen_addr":          ":8080",
	"a2a_listen_addr":          ":8091",
	"gorm_log_level":           "warn",
	"delivery_webhook_interval": time.Minute,
	"status_scheduler_interval": time.Minute,
}

// Load builds a Config from the process environment. DATABASE_URL_FILE, if
// set, takes precedence over DATABASE_URL (spec.md §4.14: container
// secrets are frequently mounted as files rather than env values).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for _, key := range []string{
		"database_url", "database_url_file", "database_query_timeout",
		"database_connect_timeout", "database_pool_timeout", "use_pgbouncer",
		"a2a_base_url", "mcp_listen_addr", "a2a_listen_addr", "gorm_log_level",
		"delivery_webhook_interval", "status_scheduler_interval", "jwt_signing_secret",
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal failed: %w", err)
	}

	if cfg.DatabaseURLFile != "" {
		data, err := os.ReadFile(cfg.DatabaseURLFile)
		if err != nil {
			return nil, fmt.Errorf("config: read database_url_file: %w", err)
		}
		cfg.DatabaseURL = strings.TrimSpace(string(data))
	}

	return &cfg, nil
}
