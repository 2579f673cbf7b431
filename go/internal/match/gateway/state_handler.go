package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/rs/zerolog/log"
)

// MatchController is the part of match.Controller the HTTP surface drives
type MatchController interface {
	MatchID() uuid.UUID
	State() match.GameState
	TimeRemaining() int
	ChangeState(ctx context.Context, next match.GameState) error
}

// ChangeStateRequest is the body of POST /api/match/state.
// State accepts either the state name ("GamePlaying") or its number.
type ChangeStateRequest struct {
	State json.RawMessage `json:"state"`
}

var errNoneTarget = errors.New("a match cannot be moved back to None")

func (r ChangeStateRequest) missing() bool {
	trimmed := bytes.TrimSpace(r.State)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parse resolves the requested state. None is only ever the initial state, so it is refused.
func (r ChangeStateRequest) parse() (match.GameState, error) {
	next, err := r.resolve()
	if err != nil {
		return 0, err
	}
	if next == match.None {
		return 0, errNoneTarget
	}
	return next, nil
}

func (r ChangeStateRequest) resolve() (match.GameState, error) {
	var n int
	if err := json.Unmarshal(r.State, &n); err == nil {
		s := match.GameState(n)
		if !s.Valid() {
			return 0, match.ErrUnknownState
		}
		return s, nil
	}
	var name string
	if err := json.Unmarshal(r.State, &name); err != nil {
		return 0, match.ErrUnknownState
	}
	return match.ParseGameState(name)
}

func snapshotOf(c MatchController) StatePayload {
	state := c.State()
	return StatePayload{
		MatchID:          c.MatchID().String(),
		State:            state.String(),
		TimeRemainingSec: c.TimeRemaining(),
		IsPlaying:        state == match.GamePlaying,
	}
}

// StateHandler handles HTTP requests for the match state
type StateHandler struct {
	controller MatchController
}

func NewStateHandler(controller MatchController) *StateHandler {
	return &StateHandler{controller: controller}
}

// HandleMatchState handles GET and POST /api/match/state
func (h *StateHandler) HandleMatchState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeState(w, http.StatusOK)
	case http.MethodPost:
		h.handleChangeState(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StateHandler) handleChangeState(w http.ResponseWriter, r *http.Request) {
	var req ChangeStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.missing() {
		http.Error(w, "state is required", http.StatusBadRequest)
		return
	}

	next, err := req.parse()
	if errors.Is(err, errNoneTarget) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, "Unknown game state", http.StatusBadRequest)
		return
	}

	if err := h.controller.ChangeState(r.Context(), next); err != nil {
		log.Error().Err(err).Str("state", next.String()).Msg("failed to change game state")
		if errors.Is(err, match.ErrClosed) {
			http.Error(w, "Match is closed", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to change game state", http.StatusInternalServerError)
		return
	}

	h.writeState(w, http.StatusOK)
}

func (h *StateHandler) writeState(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(snapshotOf(h.controller)); err != nil {
		log.Error().Err(err).Msg("failed to encode match state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/match/state", h.HandleMatchState)
}
