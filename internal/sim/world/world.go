package world

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"loopclaim.app/internal/sim/dispatch"
	"loopclaim.app/internal/sim/race"
	"loopclaim.app/internal/sim/session"
	"loopclaim.app/internal/sim/territory"
)

var ErrStopped = errors.New("world: stopped")

type EnvelopeKind int

const (
	KindConnect EnvelopeKind = iota
	KindMessage
	KindDisconnect
)

// Envelope is one input to the world loop. Connect, message and disconnect
// share the inbox so that inputs of one connection keep their order.
type Envelope struct {
	Kind   EnvelopeKind
	ConnID string
	Out    chan []byte // KindConnect
	Msg    any         // KindMessage: a *protocol.XxxMsg
}

// World is the single authoritative owner of players, territories and
// races. All state must be accessed only from the world loop goroutine.
type World struct {
	cfg Config
	log *log.Logger

	players     *session.Registry
	territories *territory.Store
	races       *race.Engine
	disp        *dispatch.Dispatcher

	inbox    chan Envelope
	stateReq chan stateReq
	stop     chan struct{}
	stopped  atomic.Bool

	journal  JournalSink
	journSeq uint64

	// Connections evicted during the current envelope; torn down after it.
	evicted []string

	counters counters
	metrics  atomic.Value // Metrics
}

type counters struct {
	processed uint64
	joins     uint64
	leaves    uint64
	conquests uint64
	transfers uint64
	rejected  map[string]uint64
}

func New(cfg Config) *World {
	cfg = cfg.normalized()
	w := &World{
		cfg:         cfg,
		log:         cfg.Logger,
		players:     session.NewRegistry(),
		territories: territory.NewStore(),
		races:       race.NewEngine(cfg.raceRules()),
		disp:        dispatch.New(),
		inbox:       make(chan Envelope, cfg.Tuning.InboxSize),
		stateReq:    make(chan stateReq, 8),
		stop:        make(chan struct{}),
		counters:    counters{rejected: map[string]uint64{}},
	}
	w.disp.OnEvict = func(connID string) { w.evicted = append(w.evicted, connID) }
	w.metrics.Store(Metrics{Rejected: map[string]uint64{}})
	return w
}

func (w *World) Inbox() chan<- Envelope { return w.inbox }

// Connect registers out as the event queue of connID. The world closes out
// when the connection is detached, evicted or the world stops.
func (w *World) Connect(ctx context.Context, connID string, out chan []byte) error {
	return w.enqueue(ctx, Envelope{Kind: KindConnect, ConnID: connID, Out: out})
}

func (w *World) Submit(ctx context.Context, connID string, msg any) error {
	return w.enqueue(ctx, Envelope{Kind: KindMessage, ConnID: connID, Msg: msg})
}

func (w *World) Disconnect(ctx context.Context, connID string) error {
	return w.enqueue(ctx, Envelope{Kind: KindDisconnect, ConnID: connID})
}

func (w *World) enqueue(ctx context.Context, env Envelope) error {
	if w.stopped.Load() {
		return ErrStopped
	}
	select {
	case w.inbox <- env:
		return nil
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
