package protocol_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopclaim.app/internal/protocol"
)

func TestValidator_AcceptsSamples(t *testing.T) {
	v, err := protocol.NewValidator()
	require.NoError(t, err)

	samples := map[string]string{
		protocol.TypeJoinGame:         `{"type":"joinGame","protocolVersion":"1.0","name":"Alice","color":"#111111"}`,
		protocol.TypeUpdatePosition:   `{"type":"updatePosition","lat":-23.55052,"lng":-46.633308}`,
		protocol.TypeConquerTerritory: `{"type":"conquerTerritory","name":"Park","path":[{"lat":0,"lng":0},{"lat":0,"lng":0.001},{"lat":0.001,"lng":0}]}`,
		protocol.TypeChallengeWon:     `{"type":"challengeWon","territoryId":3}`,
		protocol.TypeStartRace:        `{"type":"startRace","mode":"challenge","territoryId":3}`,
		protocol.TypeCancelRace:       `{"type":"cancelRace"}`,
	}
	for _, typ := range protocol.ClientTypes {
		raw, ok := samples[typ]
		require.True(t, ok, "missing sample for %s", typ)
		assert.NoError(t, v.Validate(typ, []byte(raw)), typ)
	}
	assert.NoError(t, v.Validate(protocol.TypeStartRace, []byte(`{"type":"startRace","mode":"normal"}`)))
}

func TestValidator_RejectsBadFrames(t *testing.T) {
	v, err := protocol.NewValidator()
	require.NoError(t, err)

	cases := []struct {
		typ string
		raw string
	}{
		{protocol.TypeJoinGame, `{"type":"joinGame","color":"#111111"}`},
		{protocol.TypeJoinGame, `{"type":"joinGame","name":"","color":"#111111"}`},
		{protocol.TypeUpdatePosition, `{"type":"updatePosition","lat":91,"lng":0}`},
		{protocol.TypeUpdatePosition, `{"type":"updatePosition","lat":"1","lng":0}`},
		{protocol.TypeConquerTerritory, `{"type":"conquerTerritory","name":"x","path":[{"lat":0,"lng":0},{"lat":1,"lng":1}]}`},
		{protocol.TypeChallengeWon, `{"type":"challengeWon","territoryId":0}`},
		{protocol.TypeChallengeWon, `{"type":"challengeWon","territoryId":1.5}`},
		{protocol.TypeStartRace, `{"type":"startRace","mode":"challenge"}`},
		{protocol.TypeStartRace, `{"type":"startRace","mode":"sprint"}`},
		{protocol.TypeCancelRace, `{"type":"joinGame"}`},
		{protocol.TypeCancelRace, `not json`},
	}
	for _, c := range cases {
		err := v.Validate(c.typ, []byte(c.raw))
		assert.True(t, errors.Is(err, protocol.ErrSchema), "%s: %s -> %v", c.typ, c.raw, err)
	}

	err = v.Validate("teleport", []byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, protocol.ErrUnknownType)
}

func TestDecode(t *testing.T) {
	msg, err := protocol.Decode([]byte(`{"type":"updatePosition","lat":1.5,"lng":-2}`))
	require.NoError(t, err)
	up, ok := msg.(*protocol.UpdatePositionMsg)
	require.True(t, ok)
	assert.Equal(t, 1.5, up.Point().Lat)
	assert.Equal(t, -2.0, up.Point().Lng)

	msg, err = protocol.Decode([]byte(`{"type":"conquerTerritory","name":"Lap","path":[{"lat":1,"lng":2}]}`))
	require.NoError(t, err)
	ct := msg.(*protocol.ConquerTerritoryMsg)
	assert.Equal(t, "Lap", ct.Name)
	assert.Len(t, ct.Path, 1)

	msg, err = protocol.Decode([]byte(`{"type":"startRace","mode":"challenge","territoryId":4}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), msg.(*protocol.StartRaceMsg).TerritoryID)

	_, err = protocol.Decode([]byte(`{"type":"nope"}`))
	assert.ErrorIs(t, err, protocol.ErrUnknownType)

	_, err = protocol.Decode([]byte(`{"type":"challengeWon","territoryId":"x"}`))
	assert.Error(t, err)

	_, err = protocol.Decode([]byte(`{`))
	assert.Error(t, err)
}

func TestEventTypesMatchConstants(t *testing.T) {
	events := []protocol.Event{
		protocol.NewCurrentGameState("c1", nil, nil),
		protocol.NewNewPlayer(sessionPlayer()),
		protocol.NewPlayerLeft("c1"),
		protocol.NewPlayerMoved("c1", pointZero()),
		protocol.NewTerritoryConquered(territoryZero()),
		protocol.NewTerritoryOwnerChanged(territoryZero(), nil),
		protocol.NewConquestNotification(territoryZero()),
		protocol.NewRaceProgress("normal", 12.5, 2, 0),
	}
	want := []string{
		protocol.TypeCurrentGameState,
		protocol.TypeNewPlayer,
		protocol.TypePlayerLeft,
		protocol.TypePlayerMoved,
		protocol.TypeTerritoryConquered,
		protocol.TypeTerritoryOwnerChanged,
		protocol.TypeConquestNotification,
		protocol.TypeRaceProgress,
	}
	for i, ev := range events {
		assert.Equal(t, want[i], ev.EventType())
	}

	// Empty state still encodes territories as an array.
	st := protocol.NewCurrentGameState("c1", nil, nil)
	assert.NotNil(t, st.Territories)
	assert.Equal(t, protocol.Version, st.ProtocolVersion)
}
