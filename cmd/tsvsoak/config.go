package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds tsvsoak's run parameters, loaded from the environment the
// same way adred-codev-ws_poc's server config is: struct tags parsed by
// caarlos0/env, with sensible defaults so the harness runs out of the box.
type Config struct {
	Algorithm string `env:"TSVSOAK_ALGORITHM" envDefault:"slot-pair"`

	Readers int           `env:"TSVSOAK_READERS" envDefault:"20"`
	Writers int           `env:"TSVSOAK_WRITERS" envDefault:"4"`
	Writes  int           `env:"TSVSOAK_WRITES" envDefault:"10000"`
	Waiters int           `env:"TSVSOAK_WAITERS" envDefault:"20"`
	Sample  time.Duration `env:"TSVSOAK_SAMPLE_INTERVAL" envDefault:"500ms"`

	MetricsAddr string `env:"TSVSOAK_METRICS_ADDR" envDefault:""`

	LogLevel string `env:"TSVSOAK_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig parses Config from the environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks Config for nonsensical values.
func (c *Config) Validate() error {
	if c.Algorithm != "slot-pair" && c.Algorithm != "subscription-slots" {
		return fmt.Errorf("TSVSOAK_ALGORITHM must be slot-pair or subscription-slots, got %q", c.Algorithm)
	}
	if c.Readers < 1 {
		return fmt.Errorf("TSVSOAK_READERS must be > 0, got %d", c.Readers)
	}
	if c.Writers < 1 {
		return fmt.Errorf("TSVSOAK_WRITERS must be > 0, got %d", c.Writers)
	}
	if c.Writes < 1 {
		return fmt.Errorf("TSVSOAK_WRITES must be > 0, got %d", c.Writes)
	}
	if c.Waiters < 0 {
		return fmt.Errorf("TSVSOAK_WAITERS must be >= 0, got %d", c.Waiters)
	}
	return nil
}
