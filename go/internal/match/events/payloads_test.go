package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCode_Valid(t *testing.T) {
	assert.True(t, ChangeGameState.Valid())
	assert.True(t, GameTime.Valid())
	assert.False(t, EventCode("PickMade").Valid())
	assert.False(t, EventCode("").Valid())
}

func TestNewEnvelope_RoundTripsThroughDecode(t *testing.T) {
	matchID := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CST", 8*3600))

	env, err := NewEnvelope(GameTime, matchID, "peer-a", GameTimePayload{TimeRemainingSec: 42}, at)
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, time.UTC, env.Timestamp.Location())

	data, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, GameTime, decoded.EventCode)
	assert.Equal(t, matchID.String(), decoded.MatchID)
	assert.Equal(t, "peer-a", decoded.SenderID)

	p, err := DecodeGameTime(decoded.Payload)
	require.NoError(t, err)
	assert.Equal(t, 42, p.TimeRemainingSec)
}

func TestDecodeEnvelope_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{`},
		{"missing code", `{"matchId":"` + uuid.NewString() + `"}`},
		{"bad match id", `{"eventCode":"GameTime","matchId":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestDecodeGameState(t *testing.T) {
	p, err := DecodeGameState([]byte(`{"state":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, p.State)

	_, err = DecodeGameState([]byte(`{"state":"three"}`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
	assert.Error(t, err)
}
