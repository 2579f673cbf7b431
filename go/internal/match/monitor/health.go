package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/rs/zerolog/log"
)

type HealthStatus struct {
	Healthy          bool     `json:"healthy"`
	MatchID          string   `json:"match_id"`
	State            string   `json:"state"`
	TimeRemaining    int      `json:"time_remaining_sec"`
	RelayConnected   *bool    `json:"relay_connected,omitempty"`
	JournalConnected *bool    `json:"journal_connected,omitempty"`
	DisplayClients   int      `json:"display_clients"`
	Errors           []string `json:"errors"`
}

// RelayConn is satisfied by *nats.Conn
type RelayConn interface {
	IsConnected() bool
}

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller is what the health check reads from the match
type Controller interface {
	State() match.GameState
	TimeRemaining() int
}

type HealthChecker struct {
	matchID    string
	controller Controller
	relay      RelayConn
	journal    Pinger
	clients    func() int
}

// HealthOption adds an optional dependency to the check
type HealthOption func(*HealthChecker)

func WithRelay(conn RelayConn) HealthOption {
	return func(h *HealthChecker) { h.relay = conn }
}

func WithJournal(db Pinger) HealthOption {
	return func(h *HealthChecker) { h.journal = db }
}

// WithDisplayClients reports how many display clients are attached
func WithDisplayClients(count func() int) HealthOption {
	return func(h *HealthChecker) { h.clients = count }
}

func NewHealthChecker(matchID string, controller Controller, opts ...HealthOption) *HealthChecker {
	h := &HealthChecker{matchID: matchID, controller: controller}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:       true,
		MatchID:       h.matchID,
		State:         h.controller.State().String(),
		TimeRemaining: h.controller.TimeRemaining(),
		Errors:        []string{},
	}

	if h.relay != nil {
		connected := h.relay.IsConnected()
		status.RelayConnected = &connected
		if !connected {
			status.Healthy = false
			status.Errors = append(status.Errors, "relay disconnected")
		}
	}

	if h.journal != nil {
		connected := true
		if err := h.journal.Ping(ctx); err != nil {
			connected = false
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("journal ping failed: %v", err))
		}
		status.JournalConnected = &connected
	}

	if h.clients != nil {
		status.DisplayClients = h.clients()
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode health status")
	}
}
