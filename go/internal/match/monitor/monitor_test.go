package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) Send(ctx context.Context, code events.EventCode, payload any) error {
	return m.Called(ctx, code, payload).Error(0)
}

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) HandleEvent(ctx context.Context, code events.EventCode, payload []byte, senderID string) error {
	return m.Called(ctx, code, payload, senderID).Error(0)
}

type stubController struct {
	state     match.GameState
	remaining int
}

func (s stubController) State() match.GameState { return s.state }
func (s stubController) TimeRemaining() int     { return s.remaining }

type stubConn bool

func (s stubConn) IsConnected() bool { return bool(s) }

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestRecordTransitions(t *testing.T) {
	m := NewPrometheusMetrics()

	changes := make(chan match.StateChange, 3)
	changes <- match.StateChange{MatchID: uuid.New(), Previous: match.None, State: match.GameReady, TimeRemaining: 60, Origin: match.OriginLocal}
	changes <- match.StateChange{MatchID: uuid.New(), Previous: match.GameReady, State: match.GameStart, TimeRemaining: 60, Origin: match.OriginRemote}
	changes <- match.StateChange{MatchID: uuid.New(), Previous: match.GameStart, State: match.GamePlaying, TimeRemaining: 60, Origin: match.OriginRemote}
	close(changes)

	RecordTransitions(context.Background(), changes, m)

	assert.Equal(t, float64(match.GamePlaying), testutil.ToFloat64(m.state))
	assert.Equal(t, float64(60), testutil.ToFloat64(m.timeRemaining))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues("GameStart", "remote")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.transitions))
}

func TestMetricRelay(t *testing.T) {
	m := NewPrometheusMetrics()
	inner := &MockRelay{}
	relay := NewMetricRelay(inner, m)

	inner.On("Send", mock.Anything, events.GameTime, events.GameTimePayload{TimeRemainingSec: 42}).Return(nil)
	inner.On("Send", mock.Anything, events.ChangeGameState, mock.Anything).Return(errors.New("nats: timeout"))

	require.NoError(t, relay.Send(context.Background(), events.GameTime, events.GameTimePayload{TimeRemainingSec: 42}))
	assert.Error(t, relay.Send(context.Background(), events.ChangeGameState, events.GameStatePayload{State: 2}))

	assert.Equal(t, float64(42), testutil.ToFloat64(m.timeRemaining))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsSent.WithLabelValues("GameTime", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsSent.WithLabelValues("ChangeGameState", "failure")))
	inner.AssertExpectations(t)
}

func TestMetricHandler(t *testing.T) {
	m := NewPrometheusMetrics()
	inner := &MockHandler{}
	h := NewMetricHandler(inner, m)

	inner.On("HandleEvent", mock.Anything, events.ChangeGameState, mock.Anything, "peer-a").Return(match.ErrUnknownState)

	err := h.HandleEvent(context.Background(), events.ChangeGameState, []byte(`{"state":9}`), "peer-a")
	assert.ErrorIs(t, err, match.ErrUnknownState)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.eventsRecv.WithLabelValues("ChangeGameState", "failure")))
}

func TestMetricsHandler_ServesText(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordTimeRemaining(12)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "match_time_remaining_seconds 12"))
}

func TestNoOpMetricsCollector(t *testing.T) {
	var c MetricsCollector = NoOpMetricsCollector{}
	c.RecordTransition(match.StateChange{})
	c.RecordTimeRemaining(1)
	c.RecordEventSent(events.GameTime, true, 0)
	c.RecordEventReceived(events.GameTime, true, 0)
}

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name        string
		opts        []HealthOption
		wantHealthy bool
		wantCode    int
	}{
		{name: "standalone", wantHealthy: true, wantCode: http.StatusOK},
		{
			name:        "all connected",
			opts:        []HealthOption{WithRelay(stubConn(true)), WithJournal(stubPinger{}), WithDisplayClients(func() int { return 2 })},
			wantHealthy: true,
			wantCode:    http.StatusOK,
		},
		{name: "relay down", opts: []HealthOption{WithRelay(stubConn(false))}, wantCode: http.StatusServiceUnavailable},
		{name: "journal down", opts: []HealthOption{WithJournal(stubPinger{err: errors.New("refused")})}, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker("m-1", stubController{state: match.GamePlaying, remaining: 30}, tt.opts...)

			status := h.Check(context.Background())
			assert.Equal(t, tt.wantHealthy, status.Healthy)
			assert.Equal(t, "GamePlaying", status.State)
			assert.Equal(t, 30, status.TimeRemaining)
			assert.Equal(t, tt.wantHealthy, len(status.Errors) == 0)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
