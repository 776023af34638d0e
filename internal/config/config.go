// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

const DefaultAddr = ":3000"

// Config holds process settings. Game policy lives in tuning.yaml.
type Config struct {
	Addr string `env:"LOOPCLAIM_ADDR"`
	Port string `env:"PORT"`

	DataDir    string `env:"LOOPCLAIM_DATA"   envDefault:"./data"`
	TuningPath string `env:"LOOPCLAIM_TUNING" envDefault:"./configs/tuning.yaml"`

	DisableJournal bool `env:"LOOPCLAIM_DISABLE_JOURNAL"`
	DisableIndex   bool `env:"LOOPCLAIM_DISABLE_INDEX"`

	NATSURL     string `env:"LOOPCLAIM_NATS_URL"`
	NATSSubject string `env:"LOOPCLAIM_NATS_SUBJECT" envDefault:"loopclaim.events"`

	EnableAdminHTTP bool `env:"LOOPCLAIM_ENABLE_ADMIN_HTTP"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ListenAddr resolves the listen address: LOOPCLAIM_ADDR, then PORT, then
// DefaultAddr.
func (c Config) ListenAddr() string {
	if a := strings.TrimSpace(c.Addr); a != "" {
		return a
	}
	if p := strings.TrimSpace(c.Port); p != "" {
		if strings.HasPrefix(p, ":") {
			return p
		}
		return ":" + p
	}
	return DefaultAddr
}
