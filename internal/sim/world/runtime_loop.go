package world

import (
	"context"
	"time"

	"loopclaim.app/internal/protocol"
)

func (w *World) Run(ctx context.Context) error {
	every := time.Duration(w.cfg.Tuning.MetricsEveryMs) * time.Millisecond
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case env := <-w.inbox:
			w.handle(env)
		case req := <-w.stateReq:
			w.handleStateReq(req)
		case <-ticker.C:
			w.publishMetrics()
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (w *World) Stop() {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.stop)
	}
}

func (w *World) shutdown() {
	w.stopped.Store(true)
	w.disp.CloseAll()
	w.publishMetrics()
}

func (w *World) handle(env Envelope) {
	w.counters.processed++
	switch env.Kind {
	case KindConnect:
		w.handleConnect(env.ConnID, env.Out)
	case KindDisconnect:
		w.handleDisconnect(env.ConnID)
	case KindMessage:
		w.handleMessage(env.ConnID, env.Msg)
	}
	w.flushEvictions()
}

func (w *World) handleConnect(connID string, out chan []byte) {
	if connID == "" || out == nil {
		return
	}
	w.disp.Attach(connID, out)
	w.log.Printf("connect conn=%s conns=%d", connID, w.disp.Len())
}

func (w *World) handleDisconnect(connID string) {
	w.disp.Detach(connID)
	w.dropPlayer(connID, "disconnect")
}

// dropPlayer cancels the race of connID and removes its player. Territories
// keep their owner.
func (w *World) dropPlayer(connID, reason string) {
	w.races.Cancel(connID)
	p, ok := w.players.Leave(connID)
	if !ok {
		return
	}
	w.counters.leaves++
	w.log.Printf("leave conn=%s name=%q reason=%s players=%d", connID, p.Name, reason, w.players.Len())
	w.emit(connID, protocol.NewPlayerLeft(connID))
	w.record(JournalEntry{Kind: JournalLeave, PlayerID: connID, PlayerName: p.Name})
}

// flushEvictions tears down connections whose queue overflowed. Leaving can
// evict more connections, hence the loop.
func (w *World) flushEvictions() {
	for len(w.evicted) > 0 {
		id := w.evicted[0]
		w.evicted = w.evicted[1:]
		w.log.Printf("evict conn=%s: outbound queue full", id)
		w.dropPlayer(id, "evicted")
	}
}
