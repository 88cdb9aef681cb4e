// Package config provides bridge configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds notify-bridge configuration.
type Config struct {
	// Dispatch queue sizing and behavior.
	QueueCapacity  int           `envconfig:"NOTIFY_QUEUE_CAPACITY" default:"256"`
	OverflowPolicy string        `envconfig:"NOTIFY_OVERFLOW_POLICY" default:"drop_newest"`
	BlockTimeout   time.Duration `envconfig:"NOTIFY_BLOCK_TIMEOUT" default:"50ms"`

	// MaxDepth bounds nested payload resolution. The protocol does not
	// bound nesting, so deep future kinds need a config bump, not a rebuild.
	MaxDepth int `envconfig:"NOTIFY_MAX_DEPTH" default:"32"`

	// NATS relay (optional; empty URL disables the relay).
	NATSURL       string `envconfig:"NOTIFY_NATS_URL"`
	SubjectPrefix string `envconfig:"NOTIFY_SUBJECT_PREFIX" default:"notify"`

	// Postgres message store (optional; empty URL disables the store).
	DatabaseURL string `envconfig:"NOTIFY_DATABASE_URL"`

	// Logging
	LogLevel string `envconfig:"NOTIFY_LOG_LEVEL" default:"info"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks bounds that envconfig defaults cannot express.
func (c *Config) Validate() error {
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("config: NOTIFY_QUEUE_CAPACITY must be positive")
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("config: NOTIFY_MAX_DEPTH must be positive")
	}
	if c.BlockTimeout <= 0 {
		return fmt.Errorf("config: NOTIFY_BLOCK_TIMEOUT must be positive")
	}
	switch c.OverflowPolicy {
	case "drop_newest", "drop_oldest", "block":
	default:
		return fmt.Errorf("config: unknown NOTIFY_OVERFLOW_POLICY %q", c.OverflowPolicy)
	}
	return nil
}
