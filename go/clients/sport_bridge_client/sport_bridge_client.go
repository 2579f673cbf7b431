package sport_bridge_client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/spinrace/go/clients"
	"github.com/rs/zerolog/log"
)

// SportBridgeClient talks to the bike hardware bridge that tracks pedalling
type SportBridgeClient struct {
	*clients.BaseClient
	matchID uuid.UUID
	peerID  string
}

type startSportRequest struct {
	MatchID string `json:"match_id"`
	PeerID  string `json:"peer_id"`
}

func NewSportBridgeClient(baseURL string, matchID uuid.UUID, peerID string, timeout time.Duration) *SportBridgeClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &SportBridgeClient{
		BaseClient: clients.NewBaseClient(baseURL),
		matchID:    matchID,
		peerID:     peerID,
	}

	client.SetHeader(JsonHeader, JsonContentType)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return client
}

// StartSport tells the bridge to begin tracking the rider
func (c *SportBridgeClient) StartSport(ctx context.Context) error {
	_, err := c.PostJSON(ctx, StartSportPath, startSportRequest{
		MatchID: c.matchID.String(),
		PeerID:  c.peerID,
	})
	if err != nil {
		return fmt.Errorf("failed to start sport: %w", err)
	}
	log.Info().Str("match_id", c.matchID.String()).Msg("sport tracking started")
	return nil
}

// QuitApp tells the bridge the game is shutting down
func (c *SportBridgeClient) QuitApp(ctx context.Context) error {
	if _, err := c.PostJSON(ctx, QuitAppPath, nil); err != nil {
		return fmt.Errorf("failed to quit app: %w", err)
	}
	log.Info().Msg("sport bridge notified of quit")
	return nil
}

// NoopTracker stands in for the bridge when it is disabled
type NoopTracker struct{}

func (NoopTracker) StartSport(ctx context.Context) error {
	log.Debug().Msg("sport bridge disabled, skipping start")
	return nil
}

func (NoopTracker) QuitApp(ctx context.Context) error {
	log.Debug().Msg("sport bridge disabled, skipping quit")
	return nil
}
