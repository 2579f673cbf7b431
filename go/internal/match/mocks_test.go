package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/stretchr/testify/mock"
)

// --- Camera ---

type fakeCamera struct {
	mu      sync.Mutex
	active  bool
	changes []bool
}

func (f *fakeCamera) SetActive(active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = active
	f.changes = append(f.changes, active)
}

func (f *fakeCamera) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeCamera) Changes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.changes...)
}

// --- HUD ---

type fakeHUD struct {
	mu       sync.Mutex
	readyGos int
	times    chan int
}

func newFakeHUD() *fakeHUD {
	return &fakeHUD{times: make(chan int, 64)}
}

func (f *fakeHUD) ShowReadyGo() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyGos++
}

func (f *fakeHUD) UpdateUIInfo(info UIInformation, value int) {
	if info == UIGameTime {
		f.times <- value
	}
}

func (f *fakeHUD) ReadyGos() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readyGos
}

// nextTime waits for the next GameTime update
func (f *fakeHUD) nextTime(t *testing.T) int {
	t.Helper()
	select {
	case v := <-f.times:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for HUD time update")
		return 0
	}
}

// --- AudioPlayer ---

type fakeAudio struct {
	mu    sync.Mutex
	plays []string
}

func (f *fakeAudio) Play(clip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, clip)
}

func (f *fakeAudio) Plays() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.plays...)
}

// --- SportTracker ---

type MockSportTracker struct {
	mock.Mock
}

func (m *MockSportTracker) StartSport(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSportTracker) QuitApp(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Relay ---

type sentEvent struct {
	code    events.EventCode
	payload any
}

type fakeRelay struct {
	mu   sync.Mutex
	sent []sentEvent
	err  error
}

func (f *fakeRelay) Send(ctx context.Context, code events.EventCode, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEvent{code: code, payload: payload})
	return f.err
}

func (f *fakeRelay) Sent(code events.EventCode) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, e := range f.sent {
		if e.code == code {
			out = append(out, e.payload)
		}
	}
	return out
}

// --- harness ---

type harness struct {
	ctrl   *Controller
	camera *fakeCamera
	hud    *fakeHUD
	audio  *fakeAudio
	sport  *MockSportTracker
	relay  *fakeRelay
	bus    *Bus
	clock  *clockwork.FakeClock
	peerID string
}

type harnessOption func(*Config, *Dependencies)

func withAuthority(a bool) harnessOption {
	return func(_ *Config, d *Dependencies) { d.Authority = StaticAuthority(a) }
}

func withEditorMode() harnessOption {
	return func(c *Config, _ *Dependencies) { c.EditorMode = true }
}

func withTotalTime(secs int) harnessOption {
	return func(c *Config, _ *Dependencies) { c.TotalTime = secs }
}

func withRelay(r Relay) harnessOption {
	return func(_ *Config, d *Dependencies) { d.Relay = r }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		camera: &fakeCamera{},
		hud:    newFakeHUD(),
		audio:  &fakeAudio{},
		sport:  &MockSportTracker{},
		relay:  &fakeRelay{},
		bus:    NewBus(),
		clock:  clockwork.NewFakeClock(),
		peerID: "peer-local",
	}

	cfg := Config{
		MatchID:     uuid.New(),
		PeerID:      h.peerID,
		TotalTime:   60,
		FinishAudio: "game_finish",
	}
	deps := Dependencies{
		Camera:    h.camera,
		HUD:       h.hud,
		Audio:     h.audio,
		Sport:     h.sport,
		Relay:     h.relay,
		Authority: StaticAuthority(true),
		Bus:       h.bus,
		Clock:     h.clock,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	h.ctrl = NewController(cfg, deps)
	t.Cleanup(h.ctrl.Close)
	return h
}
