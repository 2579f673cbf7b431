package match

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/spinrace/go/internal/match/events"
	"github.com/rs/zerolog/log"
)

const tickInterval = time.Second

// startCountdown replaces any running countdown. Caller holds mu.
// The ticker is created here, before the goroutine starts, so a fake clock sees it immediately.
func (c *Controller) startCountdown() {
	c.cancelCountdown()

	ctx, cancel := context.WithCancel(context.Background())
	c.stopCountdown = cancel
	ticker := c.clock.NewTicker(tickInterval)

	log.Info().
		Str("match_id", c.cfg.MatchID.String()).
		Int("time_remaining", c.timeRemaining).
		Msg("countdown started")

	c.wg.Add(1)
	go c.runCountdown(ctx, ticker)
}

// cancelCountdown stops the running countdown, if any. Caller holds mu.
func (c *Controller) cancelCountdown() {
	if c.stopCountdown == nil {
		return
	}
	c.stopCountdown()
	c.stopCountdown = nil
}

func (c *Controller) runCountdown(ctx context.Context, ticker clockwork.Ticker) {
	defer c.wg.Done()
	defer ticker.Stop()

	for {
		if !c.tick(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			log.Debug().Str("match_id", c.cfg.MatchID.String()).Msg("countdown cancelled")
			return
		case <-ticker.Chan():
		}
	}
}

// tick runs one countdown step and reports whether the countdown should keep going
func (c *Controller) tick(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil || c.state != GamePlaying {
		return false
	}

	if c.timeRemaining < 0 {
		log.Info().Str("match_id", c.cfg.MatchID.String()).Msg("countdown elapsed")
		// the finish transition cancels ctx; its side effects must still go out
		c.transition(context.WithoutCancel(ctx), GameFinish, OriginLocal)
		return false
	}

	c.broadcast(events.GameTime, events.GameTimePayload{TimeRemainingSec: c.timeRemaining})
	c.hud.UpdateUIInfo(UIGameTime, c.timeRemaining)
	c.timeRemaining--
	return true
}
