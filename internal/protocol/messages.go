package protocol

import (
	"loopclaim.app/internal/geo"
	"loopclaim.app/internal/sim/session"
	"loopclaim.app/internal/sim/territory"
)

// joinGame (client -> server)
type JoinGameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
	Name            string `json:"name"`
	Color           string `json:"color"`
}

// updatePosition (client -> server)
type UpdatePositionMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocolVersion,omitempty"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
}

func (m UpdatePositionMsg) Point() geo.Point { return geo.Point{Lat: m.Lat, Lng: m.Lng} }

// conquerTerritory (client -> server): a client-declared closed path.
type ConquerTerritoryMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocolVersion,omitempty"`
	Name            string      `json:"name"`
	Path            []geo.Point `json:"path"`
}

// challengeWon (client -> server): a client-declared duel win.
type ChallengeWonMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
	TerritoryID     uint64 `json:"territoryId"`
}

// startRace (client -> server). TerritoryID is required for challenges;
// Name is used for the territory a normal race creates.
type StartRaceMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
	Mode            string `json:"mode"`
	TerritoryID     uint64 `json:"territoryId,omitempty"`
	Name            string `json:"name,omitempty"`
}

// cancelRace (client -> server)
type CancelRaceMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
}

// Event is any server -> client frame.
type Event interface {
	EventType() string
}

type CurrentGameStateMsg struct {
	Type            string                    `json:"type"`
	ProtocolVersion string                    `json:"protocolVersion"`
	SelfID          string                    `json:"selfId"`
	Players         map[string]session.Player `json:"players"`
	Territories     []territory.Territory     `json:"territories"`
}

type NewPlayerMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocolVersion"`
	Player          session.Player `json:"player"`
}

type PlayerLeftMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocolVersion"`
	ID              string `json:"id"`
}

type PlayerMovedMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocolVersion"`
	ID              string    `json:"id"`
	Position        geo.Point `json:"position"`
}

type TerritoryConqueredMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocolVersion"`
	Territory       territory.Territory `json:"territory"`
}

// TerritoryOwnerChangedMsg carries the whole player table so clients can
// recompute the ranking.
type TerritoryOwnerChangedMsg struct {
	Type            string                    `json:"type"`
	ProtocolVersion string                    `json:"protocolVersion"`
	Territory       territory.Territory       `json:"territory"`
	Players         map[string]session.Player `json:"players"`
}

type ConquestNotificationMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocolVersion"`
	TerritoryID     uint64 `json:"territoryId"`
	TerritoryName   string `json:"territoryName"`
}

type RaceProgressMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocolVersion"`
	Mode            string  `json:"mode"`
	Distance        float64 `json:"distance"` // meters
	Points          int     `json:"points"`
	TargetID        uint64  `json:"targetId,omitempty"`
}

func (CurrentGameStateMsg) EventType() string      { return TypeCurrentGameState }
func (NewPlayerMsg) EventType() string             { return TypeNewPlayer }
func (PlayerLeftMsg) EventType() string            { return TypePlayerLeft }
func (PlayerMovedMsg) EventType() string           { return TypePlayerMoved }
func (TerritoryConqueredMsg) EventType() string    { return TypeTerritoryConquered }
func (TerritoryOwnerChangedMsg) EventType() string { return TypeTerritoryOwnerChanged }
func (ConquestNotificationMsg) EventType() string  { return TypeConquestNotification }
func (RaceProgressMsg) EventType() string          { return TypeRaceProgress }

func NewCurrentGameState(selfID string, players map[string]session.Player, ts []territory.Territory) CurrentGameStateMsg {
	if ts == nil {
		ts = []territory.Territory{}
	}
	return CurrentGameStateMsg{Type: TypeCurrentGameState, ProtocolVersion: Version, SelfID: selfID, Players: players, Territories: ts}
}

func NewNewPlayer(p session.Player) NewPlayerMsg {
	return NewPlayerMsg{Type: TypeNewPlayer, ProtocolVersion: Version, Player: p}
}

func NewPlayerLeft(id string) PlayerLeftMsg {
	return PlayerLeftMsg{Type: TypePlayerLeft, ProtocolVersion: Version, ID: id}
}

func NewPlayerMoved(id string, pos geo.Point) PlayerMovedMsg {
	return PlayerMovedMsg{Type: TypePlayerMoved, ProtocolVersion: Version, ID: id, Position: pos}
}

func NewTerritoryConquered(t territory.Territory) TerritoryConqueredMsg {
	return TerritoryConqueredMsg{Type: TypeTerritoryConquered, ProtocolVersion: Version, Territory: t}
}

func NewTerritoryOwnerChanged(t territory.Territory, players map[string]session.Player) TerritoryOwnerChangedMsg {
	return TerritoryOwnerChangedMsg{Type: TypeTerritoryOwnerChanged, ProtocolVersion: Version, Territory: t, Players: players}
}

func NewConquestNotification(t territory.Territory) ConquestNotificationMsg {
	return ConquestNotificationMsg{Type: TypeConquestNotification, ProtocolVersion: Version, TerritoryID: t.ID, TerritoryName: t.Name}
}

func NewRaceProgress(mode string, distance float64, points int, targetID uint64) RaceProgressMsg {
	return RaceProgressMsg{Type: TypeRaceProgress, ProtocolVersion: Version, Mode: mode, Distance: distance, Points: points, TargetID: targetID}
}
