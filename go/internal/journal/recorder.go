package journal

import (
	"context"
	"time"

	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/rs/zerolog/log"
)

// Store persists state changes
type Store interface {
	InsertTransition(ctx context.Context, change match.StateChange) error
}

// Recorder writes every state change it receives to a Store.
// A failed insert is logged and skipped; the match never waits on the journal.
type Recorder struct {
	store   Store
	timeout time.Duration
}

func NewRecorder(store Store, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{store: store, timeout: timeout}
}

// Run consumes changes until the channel closes or ctx is cancelled
func (r *Recorder) Run(ctx context.Context, changes <-chan match.StateChange) {
	log.Info().Msg("match journal recorder started")
	defer log.Info().Msg("match journal recorder stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			r.record(ctx, change)
		}
	}
}

func (r *Recorder) record(ctx context.Context, change match.StateChange) {
	insertCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.store.InsertTransition(insertCtx, change); err != nil {
		log.Error().
			Err(err).
			Str("match_id", change.MatchID.String()).
			Str("state", change.State.String()).
			Msg("failed to journal state change")
		return
	}

	log.Debug().
		Str("match_id", change.MatchID.String()).
		Str("state", change.State.String()).
		Str("origin", string(change.Origin)).
		Msg("state change journaled")
}
