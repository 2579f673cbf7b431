package match

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameState_String(t *testing.T) {
	assert.Equal(t, "None", None.String())
	assert.Equal(t, "GamePlaying", GamePlaying.String())
	assert.Equal(t, "GameState(7)", GameState(7).String())
}

func TestParseGameState(t *testing.T) {
	for _, s := range []GameState{None, GameReady, GameStart, GamePlaying, GameFinish} {
		parsed, err := ParseGameState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseGameState("GamePaused")
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestGameState_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		State GameState `json:"state"`
	}{GameStart})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"GameStart"}`, string(data))

	var decoded struct {
		State GameState `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"state":"GameFinish"}`), &decoded))
	assert.Equal(t, GameFinish, decoded.State)

	assert.Error(t, json.Unmarshal([]byte(`{"state":"Lobby"}`), &decoded))
}
