package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DisplayEvent is what the display client receives over its websocket
type DisplayEvent struct {
	ID        string          `json:"id"`        // Event UUID
	MatchID   string          `json:"match_id"`  // Match UUID
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of display event
type EventType string

const (
	EventTypeCameraActive  EventType = "CameraActive"
	EventTypeShowReadyGo   EventType = "ShowReadyGo"
	EventTypeUIInfo        EventType = "UIInfo"
	EventTypePlayAudio     EventType = "PlayAudio"
	EventTypeStateChanged  EventType = "StateChanged"
	EventTypeStateSnapshot EventType = "StateSnapshot"
)

type CameraActivePayload struct {
	CameraID string `json:"camera_id"`
	Active   bool   `json:"active"`
}

type UIInfoPayload struct {
	Field string `json:"field"`
	Value int    `json:"value"`
}

type PlayAudioPayload struct {
	Clip string `json:"clip"`
}

// StatePayload backs both StateChanged and StateSnapshot events and the state REST route
type StatePayload struct {
	MatchID          string `json:"match_id"`
	State            string `json:"state"`
	Previous         string `json:"previous,omitempty"`
	TimeRemainingSec int    `json:"time_remaining_sec"`
	IsPlaying        bool   `json:"is_playing"`
}

func newDisplayEvent(matchID uuid.UUID, eventType EventType, payload any, at time.Time) (*DisplayEvent, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		data = raw
	}
	return &DisplayEvent{
		ID:        uuid.New().String(),
		MatchID:   matchID.String(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}
