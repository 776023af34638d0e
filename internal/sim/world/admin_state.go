package world

import (
	"context"
	"errors"

	"loopclaim.app/internal/sim/race"
	"loopclaim.app/internal/sim/session"
	"loopclaim.app/internal/sim/territory"
)

type RaceView struct {
	Mode     string  `json:"mode"`
	TargetID uint64  `json:"targetId,omitempty"`
	Name     string  `json:"name,omitempty"`
	Points   int     `json:"points"`
	Distance float64 `json:"distance"`
}

// State is a point-in-time copy of the whole world for admin views and tests.
type State struct {
	Players     map[string]session.Player `json:"players"`
	Ranking     []session.Player          `json:"ranking"`
	Territories []territory.Territory     `json:"territories"`
	Races       map[string]RaceView       `json:"races"`
	Metrics     Metrics                   `json:"metrics"`
}

type stateReq struct {
	Resp chan State
}

// RequestState asks the world loop goroutine for a State copy.
// It is safe to call from other goroutines (e.g. HTTP handlers).
func (w *World) RequestState(ctx context.Context) (State, error) {
	if w == nil || w.stateReq == nil {
		return State{}, errors.New("world state not available")
	}
	resp := make(chan State, 1)
	select {
	case w.stateReq <- stateReq{Resp: resp}:
	case <-w.stop:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case st := <-resp:
		return st, nil
	case <-w.stop:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (w *World) handleStateReq(req stateReq) {
	if req.Resp == nil {
		return
	}
	st := State{
		Players:     w.players.Snapshot(),
		Ranking:     w.players.Ranking(),
		Territories: w.territories.All(),
		Races:       map[string]RaceView{},
		Metrics:     w.snapshotMetrics(),
	}
	for id := range st.Players {
		if r, ok := w.races.Active(id); ok {
			st.Races[id] = raceView(r)
		}
	}
	select {
	case req.Resp <- st:
	default:
		// Caller timed out; don't block the world loop.
	}
}

func raceView(r race.Race) RaceView {
	return RaceView{
		Mode:     string(r.Mode),
		TargetID: r.TargetID,
		Name:     r.Name,
		Points:   len(r.Path),
		Distance: r.Distance,
	}
}
