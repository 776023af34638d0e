package world

// Metrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type Metrics struct {
	Players     int `json:"players"`
	Connections int `json:"connections"`
	Territories int `json:"territories"`
	ActiveRaces int `json:"active_races"`
	InboxDepth  int `json:"inbox_depth"`

	Processed uint64 `json:"processed"`
	Joins     uint64 `json:"joins"`
	Leaves    uint64 `json:"leaves"`
	Conquests uint64 `json:"conquests"`
	Transfers uint64 `json:"transfers"`
	Sent      uint64 `json:"sent"`
	Evicted   uint64 `json:"evicted"`

	Rejected map[string]uint64 `json:"rejected"`
}

func (w *World) Metrics() Metrics {
	if w == nil {
		return Metrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return Metrics{}
	}
	m, ok := v.(Metrics)
	if !ok {
		return Metrics{}
	}
	return m
}

func (w *World) snapshotMetrics() Metrics {
	st := w.disp.Stats()
	rej := make(map[string]uint64, len(w.counters.rejected))
	for k, v := range w.counters.rejected {
		rej[k] = v
	}
	return Metrics{
		Players:     w.players.Len(),
		Connections: w.disp.Len(),
		Territories: w.territories.Len(),
		ActiveRaces: w.races.Len(),
		InboxDepth:  len(w.inbox),
		Processed:   w.counters.processed,
		Joins:       w.counters.joins,
		Leaves:      w.counters.leaves,
		Conquests:   w.counters.conquests,
		Transfers:   w.counters.transfers,
		Sent:        st.Sent,
		Evicted:     st.Evicted,
		Rejected:    rej,
	}
}

func (w *World) publishMetrics() {
	w.metrics.Store(w.snapshotMetrics())
}
