package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// Race resolution policy.
	CloseRadiusM         float64 `yaml:"close_radius_m"`
	MinLoopLengthM       float64 `yaml:"min_loop_length_m"`
	MinRacePoints        int     `yaml:"min_race_points"`
	DefaultTerritoryName string  `yaml:"default_territory_name"`

	// Queues and timers.
	InboxSize        int `yaml:"inbox_size"`
	ClientQueue      int `yaml:"client_queue"`
	MetricsEveryMs   int `yaml:"metrics_every_ms"`
	ReadTimeoutMs    int `yaml:"read_timeout_ms"`
	WriteTimeoutMs   int `yaml:"write_timeout_ms"`
	PingEveryMs      int `yaml:"ping_every_ms"`
	MaxMessageBytes  int `yaml:"max_message_bytes"`
	MaxTerritoryPath int `yaml:"max_territory_path"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

type RateLimits struct {
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:      "1.0",
		CloseRadiusM:         25,
		MinLoopLengthM:       100,
		MinRacePoints:        3,
		DefaultTerritoryName: "My Conquest",
		InboxSize:            1024,
		ClientQueue:          64,
		MetricsEveryMs:       1000,
		ReadTimeoutMs:        60000,
		WriteTimeoutMs:       5000,
		PingEveryMs:          25000,
		MaxMessageBytes:      1 << 20,
		MaxTerritoryPath:     10000,
		RateLimits: RateLimits{
			MessagesPerSecond: 20,
			Burst:             40,
		},
	}
}

// Load reads path on top of Defaults, so a partial file only overrides the
// keys it sets.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.CloseRadiusM <= 0:
		return fmt.Errorf("close_radius_m must be > 0 (got %v)", t.CloseRadiusM)
	case t.MinLoopLengthM < 0:
		return fmt.Errorf("min_loop_length_m must be >= 0 (got %v)", t.MinLoopLengthM)
	case t.MinRacePoints < 3:
		return fmt.Errorf("min_race_points must be >= 3 (got %d)", t.MinRacePoints)
	case t.InboxSize <= 0:
		return fmt.Errorf("inbox_size must be > 0 (got %d)", t.InboxSize)
	case t.ClientQueue <= 0:
		return fmt.Errorf("client_queue must be > 0 (got %d)", t.ClientQueue)
	case t.MaxTerritoryPath < 3:
		return fmt.Errorf("max_territory_path must be >= 3 (got %d)", t.MaxTerritoryPath)
	case t.RateLimits.MessagesPerSecond < 0 || t.RateLimits.Burst < 0:
		return fmt.Errorf("rate_limits must not be negative")
	}
	return nil
}
