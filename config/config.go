// Package config loads and validates the service configuration from
// environment variables via github.com/caarlos0/env. Each domain lives in
// its own file:
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server configuration
//   - services.go: service mode and reconciler configuration
//   - provider.go: generation provider API configuration
//   - telegram.go: Telegram delivery configuration
//   - observability.go: metrics and notification configuration
package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, relaxed guards).
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Services is the comma-delimited set of service modes to run.
	Services string `env:"SERVICES" envDefault:"http,reconciler"`

	// Reconciler configuration
	Reconciler ReconcilerConfig

	// Generation provider configuration
	Provider ProviderConfig `envPrefix:"PROVIDER_"`

	// Telegram delivery configuration
	Telegram TelegramConfig `envPrefix:"TELEGRAM_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// It must be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Redis.Sanitize()
	c.Reconciler.Sanitize()
	c.Provider.Sanitize()
	c.Telegram.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks APP_ENV as a fallback for the DEV flag.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsReconcilerEnabled returns true if the reconciler service is enabled.
func (c *AppConfig) IsReconcilerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeReconciler]
}
