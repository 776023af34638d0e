package world

import (
	"encoding/json"
	"testing"

	"loopclaim.app/internal/geo"
	"loopclaim.app/internal/protocol"
	"loopclaim.app/internal/sim/tuning"
)

var origin = geo.Point{Lat: -23.55052, Lng: -46.633308}

type testClient struct {
	id  string
	out chan []byte
}

type frame struct {
	Type string
	Raw  json.RawMessage
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	return New(Config{Tuning: tuning.Defaults()})
}

func connect(w *World, id string, queue int) *testClient {
	c := &testClient{id: id, out: make(chan []byte, queue)}
	w.handle(Envelope{Kind: KindConnect, ConnID: id, Out: c.out})
	return c
}

func send(w *World, id string, msg any) {
	w.handle(Envelope{Kind: KindMessage, ConnID: id, Msg: msg})
}

func join(w *World, id, name, color string) *testClient {
	c := connect(w, id, 256)
	send(w, id, &protocol.JoinGameMsg{Type: protocol.TypeJoinGame, Name: name, Color: color})
	return c
}

func move(w *World, id string, pts ...geo.Point) {
	for _, pt := range pts {
		send(w, id, &protocol.UpdatePositionMsg{Type: protocol.TypeUpdatePosition, Lat: pt.Lat, Lng: pt.Lng})
	}
}

// squareLoop walks a square of side sideM anchored at from and returns to it.
func squareLoop(from geo.Point, sideM float64) []geo.Point {
	return []geo.Point{
		from,
		geo.Offset(from, 0, sideM),
		geo.Offset(from, sideM, sideM),
		geo.Offset(from, sideM, 0),
		from,
	}
}

func (c *testClient) drain() []frame {
	var out []frame
	for {
		select {
		case b, ok := <-c.out:
			if !ok {
				return out
			}
			var base protocol.BaseMessage
			_ = json.Unmarshal(b, &base)
			out = append(out, frame{Type: base.Type, Raw: b})
		default:
			return out
		}
	}
}

func countType(fs []frame, typ string) int {
	n := 0
	for _, f := range fs {
		if f.Type == typ {
			n++
		}
	}
	return n
}

func findType(t *testing.T, fs []frame, typ string, v any) {
	t.Helper()
	for _, f := range fs {
		if f.Type == typ {
			if err := json.Unmarshal(f.Raw, v); err != nil {
				t.Fatalf("decode %s: %v", typ, err)
			}
			return
		}
	}
	t.Fatalf("no %s frame in %d frames", typ, len(fs))
}

func state(t *testing.T, w *World) State {
	t.Helper()
	resp := make(chan State, 1)
	w.handleStateReq(stateReq{Resp: resp})
	return <-resp
}

// checkConquests asserts the counter of every player equals what it owns.
func checkConquests(t *testing.T, w *World) {
	t.Helper()
	for id, p := range w.players.Snapshot() {
		if p.Conquests < 0 {
			t.Fatalf("player %s has negative conquests %d", id, p.Conquests)
		}
		if want := w.territories.CountOwnedBy(id); p.Conquests != want {
			t.Fatalf("player %s conquests=%d owns=%d", id, p.Conquests, want)
		}
	}
}

type recordingJournal struct {
	entries []JournalEntry
}

func (r *recordingJournal) Record(e JournalEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingJournal) kinds() []JournalKind {
	out := make([]JournalKind, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Kind)
	}
	return out
}

func jsonUnmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
