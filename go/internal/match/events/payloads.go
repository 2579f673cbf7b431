package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventCode identifies a replicated match event on the relay
type EventCode string

const (
	ChangeGameState EventCode = "ChangeGameState"
	GameTime        EventCode = "GameTime"
)

// Valid reports whether the code is one the match controller understands
func (c EventCode) Valid() bool {
	switch c {
	case ChangeGameState, GameTime:
		return true
	}
	return false
}

// GameStatePayload carries a state change; State is the numeric GameState value
type GameStatePayload struct {
	State int `json:"state"`
}

// GameTimePayload carries the authority peer's remaining match time
type GameTimePayload struct {
	TimeRemainingSec int `json:"time_remaining_sec"`
}

// Envelope wraps every event published on the relay
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventCode EventCode       `json:"eventCode"`
	MatchID   string          `json:"matchId"`
	SenderID  string          `json:"senderId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

var ErrMalformedEnvelope = errors.New("malformed event envelope")

// NewEnvelope marshals payload and stamps it with a fresh event id
func NewEnvelope(code EventCode, matchID uuid.UUID, senderID string, payload any, at time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", code, err)
	}
	return Envelope{
		EventID:   uuid.New().String(),
		EventCode: code,
		MatchID:   matchID.String(),
		SenderID:  senderID,
		Timestamp: at.UTC(),
		Payload:   data,
	}, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses relay bytes and rejects envelopes missing a code or a match id
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.EventCode == "" {
		return Envelope{}, fmt.Errorf("%w: missing event code", ErrMalformedEnvelope)
	}
	if _, err := uuid.Parse(env.MatchID); err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid match id %q", ErrMalformedEnvelope, env.MatchID)
	}
	return env, nil
}

func DecodeGameState(raw []byte) (GameStatePayload, error) {
	var p GameStatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return GameStatePayload{}, fmt.Errorf("%w: %s payload: %v", ErrMalformedEnvelope, ChangeGameState, err)
	}
	return p, nil
}

func DecodeGameTime(raw []byte) (GameTimePayload, error) {
	var p GameTimePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return GameTimePayload{}, fmt.Errorf("%w: %s payload: %v", ErrMalformedEnvelope, GameTime, err)
	}
	return p, nil
}
