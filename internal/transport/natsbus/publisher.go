// Package natsbus mirrors world journal entries onto NATS subjects so that
// external consumers can follow the game without a websocket.
package natsbus

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"loopclaim.app/internal/sim/world"
)

const DefaultSubjectPrefix = "loopclaim.events"

type Publisher struct {
	conn   *nats.Conn
	prefix string
	log    *log.Logger

	published atomic.Uint64
	failed    atomic.Uint64
}

type Stats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
}

// Connect dials url. Publishing is fire-and-forget on core NATS; the client
// buffers while reconnecting.
func Connect(url, prefix string, logger *log.Logger) (*Publisher, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	conn, err := nats.Connect(url,
		nats.Name("loopclaim-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil && logger != nil {
				logger.Printf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			if logger != nil {
				logger.Printf("nats reconnected to %s", c.ConnectedUrl())
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &Publisher{conn: conn, prefix: prefix, log: logger}, nil
}

// Subject returns the subject an entry of kind is published on.
func Subject(prefix string, kind world.JournalKind) string {
	return prefix + "." + string(kind)
}

func (p *Publisher) Record(e world.JournalEntry) error {
	if p == nil || p.conn == nil {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(Subject(p.prefix, e.Kind), b); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("nats publish: %w", err)
	}
	p.published.Add(1)
	return nil
}

func (p *Publisher) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	return Stats{Published: p.published.Load(), Failed: p.failed.Load()}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	err := p.conn.FlushTimeout(2 * time.Second)
	p.conn.Close()
	return err
}
