package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertTransition(ctx context.Context, change match.StateChange) error {
	return m.Called(ctx, change).Error(0)
}

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs []execCall
	err   error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestRecorder_RecordsEveryChange(t *testing.T) {
	store := &MockStore{}
	matchID := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := match.StateChange{MatchID: matchID, Previous: match.None, State: match.GameReady, TimeRemaining: 60, Origin: match.OriginLocal, ChangedAt: at}
	second := match.StateChange{MatchID: matchID, Previous: match.GameReady, State: match.GameStart, TimeRemaining: 60, Origin: match.OriginRemote, ChangedAt: at.Add(time.Second)}

	store.On("InsertTransition", mock.Anything, first).Return(errors.New("connection refused")).Once()
	store.On("InsertTransition", mock.Anything, second).Return(nil).Once()

	changes := make(chan match.StateChange, 2)
	changes <- first
	changes <- second
	close(changes)

	NewRecorder(store, time.Second).Run(context.Background(), changes)

	store.AssertExpectations(t)
}

func TestRecorder_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		NewRecorder(&MockStore{}, 0).Run(ctx, make(chan match.StateChange))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop")
	}
}

func TestRecorder_StopsWhenDetachedFromBus(t *testing.T) {
	bus := match.NewBus()
	changes, unsubscribe := bus.Subscribe(4)

	done := make(chan struct{})
	go func() {
		NewRecorder(&MockStore{}, time.Second).Run(context.Background(), changes)
		close(done)
	}()

	unsubscribe()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder kept running after unsubscribe")
	}
	assert.Equal(t, 0, bus.Subscribers())
}

func TestRepository_InsertTransition(t *testing.T) {
	db := &fakeDB{}
	repo := NewRepository(db)
	matchID := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := repo.InsertTransition(context.Background(), match.StateChange{
		MatchID:       matchID,
		Previous:      match.GamePlaying,
		State:         match.GameFinish,
		TimeRemaining: -1,
		Origin:        match.OriginLocal,
		ChangedAt:     at,
	})
	require.NoError(t, err)

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO match_transitions")
	assert.Equal(t, []any{matchID, "GamePlaying", "GameFinish", -1, "local", at}, db.execs[0].args)
}

func TestRepository_Errors(t *testing.T) {
	db := &fakeDB{err: errors.New("relation does not exist")}
	repo := NewRepository(db)

	err := repo.EnsureSchema(context.Background())
	require.ErrorIs(t, err, db.err)
	assert.True(t, strings.HasPrefix(err.Error(), "create match_transitions"))

	err = repo.InsertTransition(context.Background(), match.StateChange{MatchID: uuid.New()})
	assert.ErrorIs(t, err, db.err)

	_, err = repo.ListTransitions(context.Background(), uuid.New())
	assert.Error(t, err)
}
