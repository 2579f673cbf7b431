package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/rs/zerolog/log"
)

// Broadcaster delivers display events to every client of a match
type Broadcaster interface {
	BroadcastToMatch(matchID uuid.UUID, event *DisplayEvent)
}

// Display drives the display client: it is the match's camera prop, HUD and audio source.
// The camera flag is tracked here so Active answers without a client round trip.
type Display struct {
	broadcaster Broadcaster
	matchID     uuid.UUID
	cameraID    string
	clock       clockwork.Clock

	mu           sync.Mutex
	cameraActive bool
}

func NewDisplay(broadcaster Broadcaster, matchID uuid.UUID, cameraID string, clock clockwork.Clock) *Display {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Display{
		broadcaster: broadcaster,
		matchID:     matchID,
		cameraID:    cameraID,
		clock:       clock,
	}
}

func (d *Display) emit(eventType EventType, payload any) {
	event, err := newDisplayEvent(d.matchID, eventType, payload, d.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build display event")
		return
	}
	d.broadcaster.BroadcastToMatch(d.matchID, event)
}

// SetActive implements match.Camera
func (d *Display) SetActive(active bool) {
	d.mu.Lock()
	d.cameraActive = active
	d.mu.Unlock()

	d.emit(EventTypeCameraActive, CameraActivePayload{CameraID: d.cameraID, Active: active})
}

// Active implements match.Camera
func (d *Display) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cameraActive
}

// ShowReadyGo implements match.HUD
func (d *Display) ShowReadyGo() {
	d.emit(EventTypeShowReadyGo, nil)
}

// UpdateUIInfo implements match.HUD
func (d *Display) UpdateUIInfo(info match.UIInformation, value int) {
	d.emit(EventTypeUIInfo, UIInfoPayload{Field: string(info), Value: value})
}

// Play implements match.AudioPlayer
func (d *Display) Play(clip string) {
	d.emit(EventTypePlayAudio, PlayAudioPayload{Clip: clip})
}

// Forward relays controller state-change notifications to display clients until ctx ends or changes closes
func (d *Display) Forward(ctx context.Context, changes <-chan match.StateChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			d.emit(EventTypeStateChanged, StatePayload{
				MatchID:          change.MatchID.String(),
				State:            change.State.String(),
				Previous:         change.Previous.String(),
				TimeRemainingSec: change.TimeRemaining,
				IsPlaying:        change.State == match.GamePlaying,
			})
		}
	}
}
