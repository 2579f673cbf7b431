package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/rs/zerolog/log"
)

// Config holds the per-match settings the host tooling used to set on the scene
type Config struct {
	MatchID     uuid.UUID
	PeerID      string
	TotalTime   int    // match length in seconds
	FinishAudio string // clip played on GameFinish
	// EditorMode skips the sport bridge and moves to GameReady on Init
	EditorMode bool
	// RelayTimeout bounds each peer send; zero means one countdown tick
	RelayTimeout time.Duration
}

// Dependencies are the collaborators the controller drives.
// Relay may be nil for an offline match; Authority defaults to the local peer; Clock defaults to real time.
type Dependencies struct {
	Camera    Camera
	HUD       HUD
	Audio     AudioPlayer
	Sport     SportTracker
	Relay     Relay
	Authority Authority
	Bus       *Bus
	Clock     Clock
}

// Controller owns the match state machine and the countdown.
// All state mutation and collaborator calls happen under mu, so transitions coming from
// HTTP, the relay consumer and the countdown goroutine are applied one at a time.
type Controller struct {
	cfg       Config
	camera    Camera
	hud       HUD
	audio     AudioPlayer
	sport     SportTracker
	outbox    *outbox
	authority Authority
	bus       *Bus
	clock     Clock

	mu            sync.Mutex
	state         GameState
	timeRemaining int
	stopCountdown context.CancelFunc
	closed        bool

	wg sync.WaitGroup
}

// NewController creates a match controller in state None
func NewController(cfg Config, deps Dependencies) *Controller {
	if deps.Authority == nil {
		deps.Authority = StaticAuthority(true)
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Bus == nil {
		deps.Bus = NewBus()
	}
	c := &Controller{
		cfg:           cfg,
		camera:        deps.Camera,
		hud:           deps.HUD,
		audio:         deps.Audio,
		sport:         deps.Sport,
		authority:     deps.Authority,
		bus:           deps.Bus,
		clock:         deps.Clock,
		state:         None,
		timeRemaining: cfg.TotalTime,
	}
	if deps.Relay != nil {
		c.outbox = newOutbox(deps.Relay, cfg.MatchID, defaultOutboxSize, cfg.RelayTimeout)
	}
	return c
}

// Init resets the timer, hides the camera prop and, in editor mode, readies the match
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.timeRemaining = c.cfg.TotalTime
	c.camera.SetActive(false)
	c.mu.Unlock()

	log.Info().
		Str("match_id", c.cfg.MatchID.String()).
		Str("peer_id", c.cfg.PeerID).
		Int("total_time", c.cfg.TotalTime).
		Bool("editor_mode", c.cfg.EditorMode).
		Bool("authority", c.authority.IsAuthority()).
		Msg("match controller initialized")

	if c.cfg.EditorMode {
		return c.ChangeState(ctx, GameReady)
	}
	return nil
}

// ChangeState moves the match to next. Requesting the current state is a no-op.
func (c *Controller) ChangeState(ctx context.Context, next GameState) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownState, int(next))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.transition(ctx, next, OriginLocal)
	return nil
}

// transition applies next and runs its entry actions. Caller holds mu.
func (c *Controller) transition(ctx context.Context, next GameState, origin Origin) bool {
	if next == c.state {
		log.Debug().
			Str("match_id", c.cfg.MatchID.String()).
			Str("state", next.String()).
			Str("origin", string(origin)).
			Msg("ignoring transition to current state")
		return false
	}

	prev := c.state
	if prev == None && !c.camera.Active() {
		c.camera.SetActive(true)
	}

	c.state = next

	if origin == OriginLocal {
		c.broadcast(events.ChangeGameState, events.GameStatePayload{State: int(next)})
	}

	c.bus.Publish(StateChange{
		MatchID:       c.cfg.MatchID,
		Previous:      prev,
		State:         next,
		TimeRemaining: c.timeRemaining,
		Origin:        origin,
		ChangedAt:     c.clock.Now(),
	})

	log.Info().
		Str("match_id", c.cfg.MatchID.String()).
		Str("from", prev.String()).
		Str("to", next.String()).
		Str("origin", string(origin)).
		Msg("game state changed")

	if prev == GamePlaying {
		c.cancelCountdown()
	}

	switch next {
	case GameStart:
		c.enterGameStart(ctx)
	case GamePlaying:
		if c.authority.IsAuthority() {
			c.startCountdown()
		}
	case GameFinish:
		c.enterGameFinish()
	}
	return true
}

func (c *Controller) enterGameStart(ctx context.Context) {
	if c.camera.Active() {
		c.camera.SetActive(false)
	}

	c.hud.ShowReadyGo()

	if c.cfg.EditorMode {
		return
	}
	if err := c.sport.StartSport(ctx); err != nil {
		log.Error().Err(err).Str("match_id", c.cfg.MatchID.String()).Msg("failed to start sport tracking")
	}
}

func (c *Controller) enterGameFinish() {
	c.audio.Play(c.cfg.FinishAudio)
	c.timeRemaining = c.cfg.TotalTime
}

// broadcast queues an event for peers. Caller holds mu.
// Delivery happens on the outbox goroutine; failures there are logged, never fatal to the match.
func (c *Controller) broadcast(code events.EventCode, payload any) {
	if c.outbox == nil {
		return
	}
	c.outbox.enqueue(code, payload)
}

// Quit is called when the hosting application exits
func (c *Controller) Quit(ctx context.Context) error {
	if err := c.sport.QuitApp(ctx); err != nil {
		return fmt.Errorf("quit sport tracking: %w", err)
	}
	return nil
}

// Close stops the countdown, flushes the relay outbox and rejects further transitions
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.cancelCountdown()
	c.mu.Unlock()

	c.wg.Wait()
	// nothing broadcasts once closed is set and the countdown has exited
	if c.outbox != nil {
		c.outbox.stop()
	}
	log.Info().Str("match_id", c.cfg.MatchID.String()).Msg("match controller closed")
}

func (c *Controller) State() GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) TimeRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeRemaining
}

func (c *Controller) IsPlaying() bool {
	return c.State() == GamePlaying
}

func (c *Controller) MatchID() uuid.UUID {
	return c.cfg.MatchID
}
