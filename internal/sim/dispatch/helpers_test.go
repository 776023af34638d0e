package dispatch

import (
	"loopclaim.app/internal/geo"
	"loopclaim.app/internal/sim/territory"
)

func pointAt() geo.Point { return geo.Point{Lat: 1, Lng: 2} }

func protocolTerritory() territory.Territory {
	return territory.Territory{ID: 1, OwnerID: "a", Name: "Lap", Path: []geo.Point{{}, {}, {}}}
}
