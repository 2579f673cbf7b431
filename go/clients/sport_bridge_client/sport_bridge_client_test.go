package sport_bridge_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/spinrace/go/clients"
	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ match.SportTracker = (*SportBridgeClient)(nil)
	_ match.SportTracker = NoopTracker{}
)

func TestStartSport(t *testing.T) {
	matchID := uuid.New()
	gotCh := make(chan startSportRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, StartSportPath, r.URL.Path)
		assert.Equal(t, JsonContentType, r.Header.Get(JsonHeader))
		var got startSportRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		gotCh <- got
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewSportBridgeClient(server.URL, matchID, "peer-a", time.Second)
	require.NoError(t, c.StartSport(context.Background()))
	assert.Equal(t, startSportRequest{MatchID: matchID.String(), PeerID: "peer-a"}, <-gotCh)
}

func TestQuitApp(t *testing.T) {
	var called atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(r.Method == http.MethodPost && r.URL.Path == QuitAppPath)
	}))
	defer server.Close()

	c := NewSportBridgeClient(server.URL, uuid.New(), "peer-a", time.Second)
	require.NoError(t, c.QuitApp(context.Background()))
	assert.True(t, called.Load())
}

func TestStartSport_BridgeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no bike connected", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewSportBridgeClient(server.URL, uuid.New(), "peer-a", time.Second)
	err := c.StartSport(context.Background())
	require.Error(t, err)

	var statusErr *clients.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "no bike connected")
}

func TestStartSport_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewSportBridgeClient(server.URL, uuid.New(), "peer-a", time.Second)
	assert.ErrorIs(t, c.StartSport(ctx), context.Canceled)
}

func TestNoopTracker(t *testing.T) {
	assert.NoError(t, NoopTracker{}.StartSport(context.Background()))
	assert.NoError(t, NoopTracker{}.QuitApp(context.Background()))
}
