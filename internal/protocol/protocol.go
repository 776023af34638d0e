package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const Version = "1.0"

// Client -> server message types.
const (
	TypeJoinGame         = "joinGame"
	TypeUpdatePosition   = "updatePosition"
	TypeConquerTerritory = "conquerTerritory"
	TypeChallengeWon     = "challengeWon"
	TypeStartRace        = "startRace"
	TypeCancelRace       = "cancelRace"
)

// Server -> client event types.
const (
	TypeCurrentGameState      = "currentGameState"
	TypeNewPlayer             = "newPlayer"
	TypePlayerLeft            = "playerLeft"
	TypePlayerMoved           = "playerMoved"
	TypeTerritoryConquered    = "territoryConquered"
	TypeTerritoryOwnerChanged = "territoryOwnerChanged"
	TypeConquestNotification  = "conquestNotification"
	TypeRaceProgress          = "raceProgress"
)

// ClientTypes lists every type a client may send, in a stable order.
var ClientTypes = []string{
	TypeJoinGame,
	TypeUpdatePosition,
	TypeConquerTerritory,
	TypeChallengeWon,
	TypeStartRace,
	TypeCancelRace,
}

var ErrUnknownType = errors.New("protocol: unknown message type")

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// Decode parses a client frame into its typed message.
func Decode(b []byte) (any, error) {
	base, err := DecodeBase(b)
	if err != nil {
		return nil, err
	}
	var msg any
	switch base.Type {
	case TypeJoinGame:
		msg = &JoinGameMsg{}
	case TypeUpdatePosition:
		msg = &UpdatePositionMsg{}
	case TypeConquerTerritory:
		msg = &ConquerTerritoryMsg{}
	case TypeChallengeWon:
		msg = &ChallengeWonMsg{}
	case TypeStartRace:
		msg = &StartRaceMsg{}
	case TypeCancelRace:
		msg = &CancelRaceMsg{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, base.Type)
	}
	if err := json.Unmarshal(b, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", base.Type, err)
	}
	return msg, nil
}
