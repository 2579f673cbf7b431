package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/spinrace/go/internal/match"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Transition is one journaled state change
type Transition struct {
	ID            int64
	MatchID       uuid.UUID
	Previous      match.GameState
	State         match.GameState
	TimeRemaining int
	Origin        match.Origin
	ChangedAt     time.Time
}

const createTransitionsTable = `
CREATE TABLE IF NOT EXISTS match_transitions (
    id                 BIGSERIAL PRIMARY KEY,
    match_id           UUID        NOT NULL,
    previous_state     TEXT        NOT NULL,
    state              TEXT        NOT NULL,
    time_remaining_sec INTEGER     NOT NULL,
    origin             TEXT        NOT NULL,
    changed_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS match_transitions_match_id_idx ON match_transitions (match_id, changed_at);
`

const insertTransition = `
INSERT INTO match_transitions (
  match_id, previous_state, state, time_remaining_sec, origin, changed_at
) VALUES (
  $1, $2, $3, $4, $5, $6
)
`

const listTransitions = `
SELECT id, match_id, previous_state, state, time_remaining_sec, origin, changed_at
FROM match_transitions
WHERE match_id = $1
ORDER BY changed_at, id
`

type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the transitions table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTransitionsTable); err != nil {
		return fmt.Errorf("create match_transitions: %w", err)
	}
	return nil
}

func (r *Repository) InsertTransition(ctx context.Context, change match.StateChange) error {
	_, err := r.db.Exec(ctx, insertTransition,
		change.MatchID,
		change.Previous.String(),
		change.State.String(),
		change.TimeRemaining,
		string(change.Origin),
		change.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// ListTransitions returns a match's transitions oldest first
func (r *Repository) ListTransitions(ctx context.Context, matchID uuid.UUID) ([]Transition, error) {
	rows, err := r.db.Query(ctx, listTransitions, matchID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}

	transitions, err := pgx.CollectRows(rows, scanTransition)
	if err != nil {
		return nil, fmt.Errorf("scan transitions: %w", err)
	}
	return transitions, nil
}

func scanTransition(row pgx.CollectableRow) (Transition, error) {
	var (
		t              Transition
		previous, curr string
		origin         string
	)
	if err := row.Scan(&t.ID, &t.MatchID, &previous, &curr, &t.TimeRemaining, &origin, &t.ChangedAt); err != nil {
		return Transition{}, err
	}

	var err error
	if t.Previous, err = match.ParseGameState(previous); err != nil {
		return Transition{}, err
	}
	if t.State, err = match.ParseGameState(curr); err != nil {
		return Transition{}, err
	}
	t.Origin = match.Origin(origin)
	return t, nil
}
