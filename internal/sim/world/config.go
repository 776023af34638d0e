package world

import (
	"io"
	"log"

	"loopclaim.app/internal/sim/race"
	"loopclaim.app/internal/sim/tuning"
)

type Config struct {
	Tuning tuning.Tuning
	Logger *log.Logger
}

func (c Config) normalized() Config {
	if c.Tuning.InboxSize <= 0 {
		c.Tuning = tuning.Defaults()
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
	return c
}

func (c Config) raceRules() race.Rules {
	return race.Rules{
		CloseRadiusM:   c.Tuning.CloseRadiusM,
		MinLoopLengthM: c.Tuning.MinLoopLengthM,
		MinPoints:      c.Tuning.MinRacePoints,
	}
}
