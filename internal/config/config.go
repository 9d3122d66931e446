// Package config loads the gateway's runtime configuration from
// environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from environment
// variables.
type Config struct {
	// Server
	Host string `env:"GATEWAY_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"GATEWAY_PORT" envDefault:"8080"`

	// Tenant registry
	TenantBaseDir string `env:"GATEWAY_BASE_DIR" envDefault:"data/tenants"`

	// Logging
	LogLevel  string `env:"GATEWAY_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// CORS
	CORSAllowedOrigins []string `env:"GATEWAY_CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// Redis (optional — if not set, rate limiting stays in-memory and
	// single-process)
	RedisURL string `env:"REDIS_URL"`

	// Global admin
	GlobalAdminConfigPath  string `env:"GATEWAY_GLOBAL_ADMIN_CONFIG" envDefault:"config/global.json"`
	GlobalAdminLegacyToken string `env:"GATEWAY_ADMIN_TOKEN"`

	// Slack (optional — if not set, DR/backup lifecycle notifications are
	// dropped rather than sent)
	SlackBotToken     string `env:"SLACK_BOT_TOKEN"`
	SlackAlertChannel string `env:"SLACK_ALERT_CHANNEL" envDefault:"#gateway-alerts"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
