// Package dispatch fans server events out to connection queues.
//
// A Dispatcher is owned by the world loop; it is the only writer of every
// attached queue, which keeps per-connection delivery in dispatch order.
package dispatch

import (
	"encoding/json"
	"sort"

	"loopclaim.app/internal/protocol"
)

type Audience int

const (
	AudienceAll Audience = iota
	AudienceOthers
	AudienceSender
)

func (a Audience) String() string {
	switch a {
	case AudienceOthers:
		return "others"
	case AudienceSender:
		return "sender"
	default:
		return "all"
	}
}

// AudienceOf maps a server event type to its recipients.
func AudienceOf(eventType string) Audience {
	switch eventType {
	case protocol.TypeNewPlayer, protocol.TypePlayerLeft, protocol.TypePlayerMoved:
		return AudienceOthers
	case protocol.TypeConquestNotification, protocol.TypeCurrentGameState, protocol.TypeRaceProgress:
		return AudienceSender
	default:
		return AudienceAll
	}
}

type Stats struct {
	Sent    uint64 `json:"sent"`
	Evicted uint64 `json:"evicted"`
}

type Dispatcher struct {
	conns map[string]chan []byte

	// OnEvict is called with the connection id after its queue was closed.
	OnEvict func(connID string)

	stats Stats
}

func New() *Dispatcher {
	return &Dispatcher{conns: map[string]chan []byte{}}
}

// Attach registers out for connID, replacing (and closing) any earlier queue.
func (d *Dispatcher) Attach(connID string, out chan []byte) {
	if old, ok := d.conns[connID]; ok && old != out {
		close(old)
	}
	d.conns[connID] = out
}

// Detach closes and forgets the queue of connID.
func (d *Dispatcher) Detach(connID string) bool {
	out, ok := d.conns[connID]
	if !ok {
		return false
	}
	delete(d.conns, connID)
	close(out)
	return true
}

func (d *Dispatcher) Len() int { return len(d.conns) }

func (d *Dispatcher) Stats() Stats { return d.stats }

// Dispatch marshals ev once and enqueues it for its audience. A queue that
// is full gets evicted instead of blocking the caller.
func (d *Dispatcher) Dispatch(origin string, ev protocol.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	switch AudienceOf(ev.EventType()) {
	case AudienceSender:
		if out, ok := d.conns[origin]; ok {
			d.send(origin, out, b)
		}
	case AudienceOthers:
		for _, id := range d.ids() {
			if id == origin {
				continue
			}
			if out, ok := d.conns[id]; ok {
				d.send(id, out, b)
			}
		}
	default:
		for _, id := range d.ids() {
			if out, ok := d.conns[id]; ok {
				d.send(id, out, b)
			}
		}
	}
	return nil
}

// CloseAll detaches every connection. Used on shutdown.
func (d *Dispatcher) CloseAll() {
	for id, out := range d.conns {
		delete(d.conns, id)
		close(out)
	}
}

func (d *Dispatcher) send(id string, out chan []byte, b []byte) {
	select {
	case out <- b:
		d.stats.Sent++
	default:
		d.evict(id)
	}
}

func (d *Dispatcher) evict(id string) {
	if !d.Detach(id) {
		return
	}
	d.stats.Evicted++
	if d.OnEvict != nil {
		d.OnEvict(id)
	}
}

// ids returns attached ids in a stable order; eviction during a fan-out
// mutates the map.
func (d *Dispatcher) ids() []string {
	out := make([]string, 0, len(d.conns))
	for id := range d.conns {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
