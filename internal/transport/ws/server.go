package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"loopclaim.app/internal/protocol"
	"loopclaim.app/internal/sim/tuning"
	"loopclaim.app/internal/sim/world"
)

type Server struct {
	world     *world.World
	log       *log.Logger
	tuning    tuning.Tuning
	validator *protocol.Validator

	upgrader websocket.Upgrader

	active   atomic.Int64
	accepted atomic.Uint64
	dropped  dropCounters
}

type dropCounters struct {
	rate    atomic.Uint64
	decode  atomic.Uint64
	version atomic.Uint64
	schema  atomic.Uint64
}

// Stats counts connections and inbound frames dropped before they reached
// the world.
type Stats struct {
	Active         int64  `json:"active"`
	Accepted       uint64 `json:"accepted"`
	DroppedRate    uint64 `json:"dropped_rate"`
	DroppedDecode  uint64 `json:"dropped_decode"`
	DroppedVersion uint64 `json:"dropped_version"`
	DroppedSchema  uint64 `json:"dropped_schema"`
}

func NewServer(w *world.World, t tuning.Tuning, v *protocol.Validator, logger *log.Logger) *Server {
	return &Server{
		world:     w,
		log:       logger,
		tuning:    t,
		validator: v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Stats() Stats {
	return Stats{
		Active:         s.active.Load(),
		Accepted:       s.accepted.Load(),
		DroppedRate:    s.dropped.rate.Load(),
		DroppedDecode:  s.dropped.decode.Load(),
		DroppedVersion: s.dropped.version.Load(),
		DroppedSchema:  s.dropped.schema.Load(),
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		connID := uuid.NewString()
		out := make(chan []byte, s.tuning.ClientQueue)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		if err := s.world.Connect(ctx, connID, out); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server stopping"), time.Now().Add(time.Second))
			return
		}
		s.accepted.Add(1)
		s.active.Add(1)
		defer s.active.Add(-1)
		s.log.Printf("ws connect conn=%s remote=%s", connID, r.RemoteAddr)

		readTimeout := s.ms(s.tuning.ReadTimeoutMs, 60*time.Second)
		conn.SetReadLimit(int64(s.tuning.MaxMessageBytes))
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})

		go s.writeLoop(ctx, cancel, conn, out)

		limiter := s.newLimiter()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if !limiter.Allow() {
				s.dropped.rate.Add(1)
				continue
			}
			m, ok := s.parse(msg)
			if !ok {
				continue
			}
			if err := s.world.Submit(ctx, connID, m); err != nil {
				break
			}
		}
		cancel()

		// Cleanup.
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		if err := s.world.Disconnect(dctx, connID); err != nil && !errors.Is(err, world.ErrStopped) {
			s.log.Printf("ws disconnect conn=%s: %v", connID, err)
		}
		s.log.Printf("ws close conn=%s", connID)
	}
}

// parse turns a raw frame into a typed message. Frames that fail any check
// are dropped without a reply.
func (s *Server) parse(msg []byte) (any, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.dropped.decode.Add(1)
		return nil, false
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		s.dropped.version.Add(1)
		return nil, false
	}
	if s.validator != nil {
		if err := s.validator.Validate(base.Type, msg); err != nil {
			s.dropped.schema.Add(1)
			return nil, false
		}
	}
	m, err := protocol.Decode(msg)
	if err != nil {
		s.dropped.decode.Add(1)
		return nil, false
	}
	return m, true
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan []byte) {
	writeTimeout := s.ms(s.tuning.WriteTimeoutMs, 5*time.Second)
	ticker := time.NewTicker(s.ms(s.tuning.PingEveryMs, 25*time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				return
			}
		case b, ok := <-out:
			if !ok {
				// Detached by the world: evicted or shutting down.
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				cancel()
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = conn.Close()
				cancel()
				return
			}
		}
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	rl := s.tuning.RateLimits
	if rl.MessagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := rl.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rl.MessagesPerSecond), burst)
}

func (s *Server) ms(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}
