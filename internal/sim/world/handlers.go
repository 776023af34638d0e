package world

import (
	"errors"
	"strings"

	"loopclaim.app/internal/geo"
	"loopclaim.app/internal/protocol"
	"loopclaim.app/internal/sim/race"
	"loopclaim.app/internal/sim/session"
	"loopclaim.app/internal/sim/territory"
)

func (w *World) handleMessage(connID string, msg any) {
	switch m := msg.(type) {
	case *protocol.JoinGameMsg:
		w.handleJoin(connID, m)
	case *protocol.UpdatePositionMsg:
		w.handleUpdatePosition(connID, m)
	case *protocol.ConquerTerritoryMsg:
		w.handleConquer(connID, m)
	case *protocol.ChallengeWonMsg:
		w.handleChallengeWon(connID, m)
	case *protocol.StartRaceMsg:
		w.handleStartRace(connID, m)
	case *protocol.CancelRaceMsg:
		w.handleCancelRace(connID)
	default:
		w.reject(connID, protocol.ErrProtoBadRequest)
	}
}

// reject counts a dropped input. Nothing is sent back to the client.
func (w *World) reject(connID, code string) {
	w.counters.rejected[code]++
}

func (w *World) emit(origin string, ev protocol.Event) {
	if err := w.disp.Dispatch(origin, ev); err != nil {
		w.log.Printf("dispatch %s: %v", ev.EventType(), err)
	}
}

func (w *World) joined(connID string) (session.Player, bool) {
	p, ok := w.players.Get(connID)
	if !ok {
		w.reject(connID, protocol.ErrNotJoined)
	}
	return p, ok
}

func (w *World) handleJoin(connID string, m *protocol.JoinGameMsg) {
	name := strings.TrimSpace(m.Name)
	color := strings.TrimSpace(m.Color)
	if name == "" || color == "" {
		w.reject(connID, protocol.ErrBadRequest)
		return
	}

	_, replaced := w.players.Join(connID, name, color)
	if replaced {
		// Last join wins; the counter is rebuilt from ownership so it stays
		// in step with the store.
		w.races.Cancel(connID)
		w.players.SetConquests(connID, w.territories.CountOwnedBy(connID))
	}
	p, _ := w.players.Get(connID)
	w.counters.joins++

	kind := JournalJoin
	if replaced {
		kind = JournalRejoin
	}
	w.log.Printf("%s conn=%s name=%q color=%s players=%d", kind, connID, name, color, w.players.Len())

	w.emit(connID, protocol.NewCurrentGameState(connID, w.players.Snapshot(), w.territories.All()))
	w.emit(connID, protocol.NewNewPlayer(p))
	w.record(JournalEntry{Kind: kind, PlayerID: connID, PlayerName: name, Color: color})
}

func (w *World) handleUpdatePosition(connID string, m *protocol.UpdatePositionMsg) {
	if _, ok := w.joined(connID); !ok {
		return
	}
	pt := m.Point()
	if !pt.Valid() {
		w.reject(connID, protocol.ErrBadRequest)
		return
	}
	w.players.UpdatePosition(connID, pt)
	w.emit(connID, protocol.NewPlayerMoved(connID, pt))

	prog, ok := w.races.Feed(connID, pt, w.targetPath)
	if !ok {
		return
	}
	w.emit(connID, protocol.NewRaceProgress(string(prog.Mode), prog.Distance, prog.Points, prog.TargetID))

	switch prog.Outcome {
	case race.OutcomeConquest:
		name := prog.Finished.Name
		if name == "" {
			name = w.cfg.Tuning.DefaultTerritoryName
		}
		w.conquer(connID, prog.Finished.Path, name)
	case race.OutcomeChallenge:
		w.transfer(connID, prog.Finished.TargetID)
	}
}

func (w *World) targetPath(id uint64) ([]geo.Point, bool) {
	t, ok := w.territories.Find(id)
	if !ok {
		return nil, false
	}
	return t.Path, true
}

func (w *World) handleConquer(connID string, m *protocol.ConquerTerritoryMsg) {
	if _, ok := w.joined(connID); !ok {
		return
	}
	if len(m.Path) < territory.MinPathPoints || len(m.Path) > w.cfg.Tuning.MaxTerritoryPath {
		w.reject(connID, protocol.ErrBadRequest)
		return
	}
	for _, pt := range m.Path {
		if !pt.Valid() {
			w.reject(connID, protocol.ErrBadRequest)
			return
		}
	}
	name := strings.TrimSpace(m.Name)
	if name == "" {
		name = w.cfg.Tuning.DefaultTerritoryName
	}
	w.conquer(connID, m.Path, name)
}

// conquer creates a territory for connID and announces it. Store creation,
// counter update and broadcast happen in the same envelope.
func (w *World) conquer(connID string, path []geo.Point, name string) {
	p, ok := w.players.Get(connID)
	if !ok {
		return
	}
	t, err := w.territories.Create(p.ID, p.Name, p.Color, path, name)
	if err != nil {
		w.reject(connID, protocol.ErrBadRequest)
		return
	}
	w.players.AddConquest(connID)
	w.counters.conquests++
	w.log.Printf("conquest territory=%d owner=%s name=%q points=%d", t.ID, connID, t.Name, len(t.Path))

	w.emit(connID, protocol.NewTerritoryConquered(t))
	w.emit(connID, protocol.NewConquestNotification(t))
	w.record(JournalEntry{
		Kind:          JournalConquest,
		PlayerID:      p.ID,
		PlayerName:    p.Name,
		Color:         p.Color,
		TerritoryID:   t.ID,
		TerritoryName: t.Name,
		Path:          t.Path,
	})
}

func (w *World) handleChallengeWon(connID string, m *protocol.ChallengeWonMsg) {
	if _, ok := w.joined(connID); !ok {
		return
	}
	w.transfer(connID, m.TerritoryID)
}

// transfer moves territory id to connID. Missing territories and
// self-challenges are stale references and change nothing.
func (w *World) transfer(connID string, id uint64) {
	p, ok := w.players.Get(connID)
	if !ok {
		return
	}
	prev, next, err := w.territories.TransferOwnership(id, p.ID, p.Name, p.Color)
	switch {
	case errors.Is(err, territory.ErrNotFound), errors.Is(err, territory.ErrAlreadyOwner):
		w.reject(connID, protocol.ErrStale)
		return
	case err != nil:
		w.log.Printf("transfer territory=%d: %v", id, err)
		return
	}
	w.players.RemoveConquest(prev.OwnerID)
	w.players.AddConquest(connID)
	w.counters.transfers++
	w.log.Printf("transfer territory=%d from=%s to=%s", id, prev.OwnerID, connID)

	w.emit(connID, protocol.NewTerritoryOwnerChanged(next, w.players.Snapshot()))
	w.record(JournalEntry{
		Kind:          JournalTransfer,
		PlayerID:      p.ID,
		PlayerName:    p.Name,
		Color:         p.Color,
		TerritoryID:   next.ID,
		TerritoryName: next.Name,
		PrevOwnerID:   prev.OwnerID,
	})
}

func (w *World) handleStartRace(connID string, m *protocol.StartRaceMsg) {
	if _, ok := w.joined(connID); !ok {
		return
	}
	mode := race.Mode(m.Mode)
	if !mode.Valid() {
		w.reject(connID, protocol.ErrBadRequest)
		return
	}
	if mode == race.ModeChallenge {
		t, ok := w.territories.Find(m.TerritoryID)
		if !ok || t.OwnerID == connID {
			w.reject(connID, protocol.ErrInvalidTarget)
			return
		}
	}
	w.races.Start(connID, mode, m.TerritoryID, strings.TrimSpace(m.Name))
	w.record(JournalEntry{Kind: JournalRaceStart, PlayerID: connID, Mode: string(mode), TerritoryID: m.TerritoryID})
}

func (w *World) handleCancelRace(connID string) {
	if _, ok := w.joined(connID); !ok {
		return
	}
	if w.races.Cancel(connID) {
		w.record(JournalEntry{Kind: JournalRaceCancel, PlayerID: connID})
	}
}
