package config

import (
	"strings"
	"time"
)

// ProviderConfig contains the generation provider API configuration.
type ProviderConfig struct {
	// BaseURL is the provider API root, e.g. "https://api.provider.example".
	BaseURL string `env:"BASE_URL"`

	// APIKey authenticates requests to the provider.
	APIKey string `env:"API_KEY"`

	// CallbackURL is the publicly reachable URL the provider posts task
	// updates to. It is passed along with every task submission.
	CallbackURL string `env:"CALLBACK_URL"`

	// Timeout bounds a single task submission request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to provider configuration values.
func (c *ProviderConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.CallbackURL = strings.TrimSpace(c.CallbackURL)
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}
