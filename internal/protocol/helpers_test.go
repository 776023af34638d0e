package protocol_test

import (
	"loopclaim.app/internal/geo"
	"loopclaim.app/internal/sim/session"
	"loopclaim.app/internal/sim/territory"
)

func sessionPlayer() session.Player { return session.Player{ID: "c1", Name: "Alice", Color: "#111111"} }

func pointZero() geo.Point { return geo.Point{} }

func territoryZero() territory.Territory {
	return territory.Territory{ID: 1, OwnerID: "c1", Name: "Lap", Path: []geo.Point{{}, {}, {}}}
}
