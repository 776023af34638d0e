package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"loopclaim.app/internal/geo"
	"loopclaim.app/internal/protocol"
)

// bot joins the game, starts a normal race and walks a square around its
// starting point until the loop is conquered.
func main() {
	var (
		url      = flag.String("url", "ws://localhost:3000/v1/ws", "ws url")
		name     = flag.String("name", "bot", "player name")
		color    = flag.String("color", "#3388ff", "player color")
		lat      = flag.Float64("lat", -23.55052, "start latitude")
		lng      = flag.Float64("lng", -46.633308, "start longitude")
		side     = flag.Float64("side", 60, "square side in meters")
		step     = flag.Float64("step", 20, "meters per position report")
		interval = flag.Duration("interval", 500*time.Millisecond, "delay between reports")
		loops    = flag.Int("loops", 1, "squares to walk (0 = forever)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	join := protocol.JoinGameMsg{
		Type:            protocol.TypeJoinGame,
		ProtocolVersion: protocol.Version,
		Name:            *name,
		Color:           *color,
	}
	if err := conn.WriteJSON(join); err != nil {
		logger.Fatalf("send joinGame: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn, logger)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	start := geo.Point{Lat: *lat, Lng: *lng}
	route := squareRoute(start, *side, *step)
	tick := time.NewTicker(*interval)
	defer tick.Stop()

	for n := 0; *loops == 0 || n < *loops; n++ {
		race := protocol.StartRaceMsg{Type: protocol.TypeStartRace, ProtocolVersion: protocol.Version, Mode: "normal", Name: *name + " loop"}
		if err := conn.WriteJSON(race); err != nil {
			logger.Printf("send startRace: %v", err)
			return
		}
		for _, pt := range route {
			select {
			case <-stop:
				return
			case <-done:
				logger.Printf("connection closed")
				return
			case <-tick.C:
			}
			msg := protocol.UpdatePositionMsg{Type: protocol.TypeUpdatePosition, ProtocolVersion: protocol.Version, Lat: pt.Lat, Lng: pt.Lng}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Printf("send updatePosition: %v", err)
				return
			}
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

// squareRoute walks north, east, south and west from start, reporting a
// point every step meters and ending back on start.
func squareRoute(start geo.Point, side, step float64) []geo.Point {
	if step <= 0 || step > side {
		step = side
	}
	corners := [][2]float64{{0, 0}, {side, 0}, {side, side}, {0, side}, {0, 0}}
	route := []geo.Point{start}
	for i := 1; i < len(corners); i++ {
		from, to := corners[i-1], corners[i]
		for d := step; ; d += step {
			if d > side {
				d = side
			}
			f := d / side
			route = append(route, geo.Offset(start, from[0]+(to[0]-from[0])*f, from[1]+(to[1]-from[1])*f))
			if d >= side {
				break
			}
		}
	}
	return route
}

func readLoop(conn *websocket.Conn, logger *log.Logger) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeCurrentGameState:
			var s protocol.CurrentGameStateMsg
			if err := json.Unmarshal(msg, &s); err != nil {
				continue
			}
			logger.Printf("joined self=%s players=%d territories=%d", s.SelfID, len(s.Players), len(s.Territories))
		case protocol.TypeRaceProgress:
			var p protocol.RaceProgressMsg
			if err := json.Unmarshal(msg, &p); err != nil {
				continue
			}
			logger.Printf("race mode=%s points=%d distance=%.1fm", p.Mode, p.Points, p.Distance)
		case protocol.TypeConquestNotification:
			var c protocol.ConquestNotificationMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				continue
			}
			logger.Printf("CONQUERED territory=%d name=%q", c.TerritoryID, c.TerritoryName)
		case protocol.TypeTerritoryOwnerChanged:
			var c protocol.TerritoryOwnerChangedMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				continue
			}
			logger.Printf("territory %d now owned by %s", c.Territory.ID, c.Territory.OwnerName)
		}
	}
}
