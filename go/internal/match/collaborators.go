package match

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/spinrace/go/internal/match/events"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
}

// Camera is the circular intro camera prop on the display client
type Camera interface {
	SetActive(active bool)
	Active() bool
}

// HUD is the in-game UI root
type HUD interface {
	ShowReadyGo()
	UpdateUIInfo(info UIInformation, value int)
}

type AudioPlayer interface {
	Play(clip string)
}

// SportTracker starts and shuts down the exercise bike's sport data session
type SportTracker interface {
	StartSport(ctx context.Context) error
	QuitApp(ctx context.Context) error
}

// Relay broadcasts match events to every other peer in the match
type Relay interface {
	Send(ctx context.Context, code events.EventCode, payload any) error
}

// Authority reports whether this peer advances the shared countdown
type Authority interface {
	IsAuthority() bool
}

// StaticAuthority is an Authority fixed by configuration
type StaticAuthority bool

func (a StaticAuthority) IsAuthority() bool { return bool(a) }
