package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopclaim.app/internal/geo"
	"loopclaim.app/internal/protocol"
	"loopclaim.app/internal/sim/tuning"
	"loopclaim.app/internal/sim/world"
)

type rawFrame struct {
	Type string
	Raw  []byte
}

func startServer(t *testing.T, tun tuning.Tuning) (*Server, string) {
	t.Helper()
	w := world.New(world.Config{Tuning: tun})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	v, err := protocol.NewValidator()
	require.NoError(t, err)
	srv := NewServer(w, tun, v, log.New(io.Discard, "", 0))

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	hs := httptest.NewServer(mux)
	t.Cleanup(func() {
		hs.Close()
		cancel()
		<-done
	})
	return srv, "ws" + strings.TrimPrefix(hs.URL, "http") + "/v1/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sendJSON(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(v))
}

// readUntil reads frames until one of type typ arrives and returns every
// frame read, that one included.
func readUntil(t *testing.T, c *websocket.Conn, typ string) []rawFrame {
	t.Helper()
	var got []rawFrame
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, c.SetReadDeadline(deadline))
		_, b, err := c.ReadMessage()
		require.NoError(t, err, "waiting for %s, got %d frames", typ, len(got))
		var base protocol.BaseMessage
		require.NoError(t, json.Unmarshal(b, &base))
		got = append(got, rawFrame{Type: base.Type, Raw: b})
		if base.Type == typ {
			return got
		}
	}
}

// readQuiet collects frames until the connection stays silent for d.
func readQuiet(c *websocket.Conn, d time.Duration) []rawFrame {
	var got []rawFrame
	for {
		_ = c.SetReadDeadline(time.Now().Add(d))
		_, b, err := c.ReadMessage()
		if err != nil {
			return got
		}
		var base protocol.BaseMessage
		_ = json.Unmarshal(b, &base)
		got = append(got, rawFrame{Type: base.Type, Raw: b})
	}
}

func count(fs []rawFrame, typ string) int {
	n := 0
	for _, f := range fs {
		if f.Type == typ {
			n++
		}
	}
	return n
}

func joinAs(t *testing.T, c *websocket.Conn, name, color string) string {
	t.Helper()
	sendJSON(t, c, protocol.JoinGameMsg{Type: protocol.TypeJoinGame, ProtocolVersion: protocol.Version, Name: name, Color: color})
	fs := readUntil(t, c, protocol.TypeCurrentGameState)
	var st protocol.CurrentGameStateMsg
	require.NoError(t, json.Unmarshal(fs[len(fs)-1].Raw, &st))
	require.NotEmpty(t, st.SelfID)
	return st.SelfID
}

func TestEndToEnd_SquareLoopConquest(t *testing.T) {
	_, url := startServer(t, tuning.Defaults())

	alice := dial(t, url)
	aliceID := joinAs(t, alice, "Alice", "#111111")
	bob := dial(t, url)
	bobID := joinAs(t, bob, "Bob", "#222222")
	require.NotEqual(t, aliceID, bobID)
	readUntil(t, alice, protocol.TypeNewPlayer)

	origin := geo.Point{Lat: -23.55052, Lng: -46.633308}
	square := []geo.Point{
		origin,
		geo.Offset(origin, 0, 200),
		geo.Offset(origin, 200, 200),
		geo.Offset(origin, 200, 0),
		origin,
	}
	sendJSON(t, alice, protocol.StartRaceMsg{Type: protocol.TypeStartRace, Mode: "normal", Name: "Block"})
	for _, pt := range square {
		sendJSON(t, alice, protocol.UpdatePositionMsg{Type: protocol.TypeUpdatePosition, Lat: pt.Lat, Lng: pt.Lng})
	}

	for name, c := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		fs := readUntil(t, c, protocol.TypeTerritoryConquered)
		var tc protocol.TerritoryConqueredMsg
		require.NoError(t, json.Unmarshal(fs[len(fs)-1].Raw, &tc))
		assert.Len(t, tc.Territory.Path, 4, name)
		assert.Equal(t, aliceID, tc.Territory.OwnerID, name)
		assert.Equal(t, "Alice", tc.Territory.OwnerName, name)
		assert.Equal(t, "#111111", tc.Territory.Color, name)
		assert.Equal(t, "Block", tc.Territory.Name, name)

		rest := readQuiet(c, 300*time.Millisecond)
		assert.Zero(t, count(rest, protocol.TypeTerritoryConquered), name)
		notes := count(fs, protocol.TypeConquestNotification) + count(rest, protocol.TypeConquestNotification)
		if c == alice {
			assert.Equal(t, 1, notes, "alice gets exactly one conquestNotification")
		} else {
			assert.Zero(t, notes, "bob gets no conquestNotification")
		}
	}
}

func TestEndToEnd_DisconnectBroadcastsPlayerLeft(t *testing.T) {
	_, url := startServer(t, tuning.Defaults())

	alice := dial(t, url)
	aliceID := joinAs(t, alice, "Alice", "#111111")
	bob := dial(t, url)
	joinAs(t, bob, "Bob", "#222222")

	sendJSON(t, alice, protocol.StartRaceMsg{Type: protocol.TypeStartRace, Mode: "normal"})
	sendJSON(t, alice, protocol.UpdatePositionMsg{Type: protocol.TypeUpdatePosition, Lat: 1, Lng: 1})
	readUntil(t, bob, protocol.TypePlayerMoved)
	require.NoError(t, alice.Close())

	fs := readUntil(t, bob, protocol.TypePlayerLeft)
	var pl protocol.PlayerLeftMsg
	require.NoError(t, json.Unmarshal(fs[len(fs)-1].Raw, &pl))
	assert.Equal(t, aliceID, pl.ID)
	assert.Zero(t, count(readQuiet(bob, 300*time.Millisecond), protocol.TypePlayerLeft))
}

func TestEndToEnd_InvalidFramesAreDropped(t *testing.T) {
	srv, url := startServer(t, tuning.Defaults())

	c := dial(t, url)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{`)))
	sendJSON(t, c, map[string]any{"type": "joinGame", "name": "NoColor"})
	sendJSON(t, c, map[string]any{"type": "joinGame", "protocolVersion": "0.1", "name": "Old", "color": "#1"})
	sendJSON(t, c, map[string]any{"type": "teleport"})
	id := joinAs(t, c, "Alice", "#111111")
	assert.NotEmpty(t, id)

	st := srv.Stats()
	assert.Equal(t, uint64(1), st.DroppedDecode)
	assert.Equal(t, uint64(2), st.DroppedSchema)
	assert.Equal(t, uint64(1), st.DroppedVersion)
	assert.Equal(t, int64(1), st.Active)
}

func TestEndToEnd_RateLimited(t *testing.T) {
	tun := tuning.Defaults()
	tun.RateLimits = tuning.RateLimits{MessagesPerSecond: 0.001, Burst: 2}
	srv, url := startServer(t, tun)

	c := dial(t, url)
	joinAs(t, c, "Alice", "#111111")
	for i := 0; i < 5; i++ {
		sendJSON(t, c, protocol.ConquerTerritoryMsg{Type: protocol.TypeConquerTerritory, Name: "x", Path: []geo.Point{{}, {Lat: 0.001}, {Lng: 0.001}}})
	}
	fs := readQuiet(c, 300*time.Millisecond)
	assert.Equal(t, 1, count(fs, protocol.TypeConquestNotification))
	assert.Equal(t, uint64(4), srv.Stats().DroppedRate)
}

func TestHandshake_ClosesWhenWorldStopped(t *testing.T) {
	tun := tuning.Defaults()
	w := world.New(world.Config{Tuning: tun})
	w.Stop()
	srv := NewServer(w, tun, nil, log.New(io.Discard, "", 0))
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
}
