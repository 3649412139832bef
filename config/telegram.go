package config

import (
	"strings"
	"time"
)

// TelegramConfig contains Telegram bot delivery configuration.
type TelegramConfig struct {
	// BotToken authenticates against the Telegram Bot API.
	BotToken string `env:"BOT_TOKEN"`

	// SendTimeout bounds a single send attempt.
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`

	// Debug enables verbose Bot API logging.
	Debug bool `env:"DEBUG" envDefault:"false"`
}

// Sanitize applies guardrails to Telegram configuration values.
func (c *TelegramConfig) Sanitize() {
	c.BotToken = strings.TrimSpace(c.BotToken)
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
}
