package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for display clients
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	controller        MatchController
	clock             clockwork.Clock
}

func NewWebSocketHandler(cm *ConnectionManager, controller MatchController, clock clockwork.Clock) *WebSocketHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &WebSocketHandler{
		connectionManager: cm,
		controller:        controller,
		clock:             clock,
	}
}

// HandleMatchConnection attaches a display client to the running match and sends it a state snapshot
func (h *WebSocketHandler) HandleMatchConnection(w http.ResponseWriter, r *http.Request) {
	matchID := h.controller.MatchID()

	// match_id is optional; when given it has to name the match this process runs
	if raw := r.URL.Query().Get("match_id"); raw != "" {
		requested, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid match_id format", http.StatusBadRequest)
			return
		}
		if requested != matchID {
			http.Error(w, "unknown match", http.StatusNotFound)
			return
		}
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = "anonymous"
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, clientID, matchID)
	if err != nil {
		// the upgrader has already replied to the client
		log.Error().
			Err(err).
			Str("match_id", matchID.String()).
			Str("client_id", clientID).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	snapshot, err := newDisplayEvent(matchID, EventTypeStateSnapshot, snapshotOf(h.controller), h.clock.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to build state snapshot")
		return
	}
	if err := h.connectionManager.SendTo(conn, snapshot); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID).Msg("failed to send state snapshot")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/match", h.HandleMatchConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
