package match

import (
	"context"
	"fmt"

	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/rs/zerolog/log"
)

// HandleEvent applies an event received from another peer.
// Events sent by this peer are ignored since the relay echoes them back.
func (c *Controller) HandleEvent(ctx context.Context, code events.EventCode, payload []byte, senderID string) error {
	if senderID == c.cfg.PeerID {
		return nil
	}

	switch code {
	case events.ChangeGameState:
		p, err := events.DecodeGameState(payload)
		if err != nil {
			return err
		}
		next := GameState(p.State)
		if !next.Valid() {
			return fmt.Errorf("%w: %d from peer %s", ErrUnknownState, p.State, senderID)
		}
		return c.applyRemoteState(ctx, next, senderID)

	case events.GameTime:
		p, err := events.DecodeGameTime(payload)
		if err != nil {
			return err
		}
		c.applyRemoteTime(p.TimeRemainingSec)
		return nil

	default:
		log.Warn().
			Str("event_code", string(code)).
			Str("sender_id", senderID).
			Msg("unknown event code - ignoring")
		return fmt.Errorf("%w: %q", ErrUnknownEventCode, code)
	}
}

func (c *Controller) applyRemoteState(ctx context.Context, next GameState, senderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	log.Debug().
		Str("match_id", c.cfg.MatchID.String()).
		Str("sender_id", senderID).
		Str("state", next.String()).
		Msg("received game state from peer")

	c.transition(ctx, next, OriginRemote)
	return nil
}

func (c *Controller) applyRemoteTime(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeRemaining = remaining
	c.hud.UpdateUIInfo(UIGameTime, remaining)
}
