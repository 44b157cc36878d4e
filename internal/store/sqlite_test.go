package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordaday/internal/game"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	u := User{ID: "u1", Username: "alice", PasswordHash: "hash", CreatedAt: storeNow}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.CreatedAt.Equal(storeNow))

	got, err = s.UserByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID, "username lookup is case insensitive")

	err = s.CreateUser(ctx, User{ID: "u2", Username: "Alice", PasswordHash: "x", CreatedAt: storeNow})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.UserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteGameRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	_, err := s.GameState(ctx, "u1", storeDate)
	assert.ErrorIs(t, err, ErrNotFound)

	st := game.NewState("u1", storeDate, storeNow)
	st, fb, err := game.RecordAttempt(st, "hello", "world", storeNow.Add(time.Second))
	require.NoError(t, err)
	require.NoError(t, s.RecordAttempt(ctx, st, game.Attempt{Ordinal: 1, Guess: "world", Feedback: fb}))

	st, fb, err = game.RecordAttempt(st, "hello", "hello", storeNow.Add(30*time.Second))
	require.NoError(t, err)
	require.NoError(t, s.RecordAttempt(ctx, st, game.Attempt{Ordinal: 2, Guess: "hello", Feedback: fb}))

	loaded, err := s.GameState(ctx, "u1", storeDate)
	require.NoError(t, err)
	assert.Equal(t, game.StatusWon, loaded.Status)
	assert.Equal(t, 2, loaded.AttemptsCount)
	assert.True(t, loaded.StartedAt.Equal(storeNow))
	require.NotNil(t, loaded.SolvedAt)
	assert.True(t, loaded.SolvedAt.Equal(storeNow.Add(30*time.Second)))

	attempts, err := s.Attempts(ctx, "u1", storeDate)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "APACA", attempts[0].Feedback.Code())
	assert.Equal(t, "CCCCC", attempts[1].Feedback.Code())
	assert.Equal(t, loaded.AttemptsCount, len(attempts))
}

func TestSQLiteDuplicateOrdinalRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	st := game.NewState("u1", storeDate, storeNow)
	st, fb, err := game.RecordAttempt(st, "hello", "world", storeNow)
	require.NoError(t, err)
	a := game.Attempt{Ordinal: 1, Guess: "world", Feedback: fb}
	require.NoError(t, s.RecordAttempt(ctx, st, a))

	corrupted := st
	corrupted.AttemptsCount = 99
	err = s.RecordAttempt(ctx, corrupted, a)
	assert.ErrorIs(t, err, ErrConflict)

	// The rejected transaction must not have touched the state row.
	loaded, err := s.GameState(ctx, "u1", storeDate)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.AttemptsCount)
}

func TestSQLiteImportGame(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	st := game.NewState("u1", storeDate, storeNow)
	st, fb, err := game.RecordAttempt(st, "hello", "hello", storeNow.Add(10*time.Second))
	require.NoError(t, err)
	attempts := []game.Attempt{{Ordinal: 1, Guess: "hello", Feedback: fb}}

	require.NoError(t, s.ImportGame(ctx, st, attempts))
	err = s.ImportGame(ctx, st, attempts)
	assert.ErrorIs(t, err, ErrConflict)

	loaded, err := s.Attempts(ctx, "u1", storeDate)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "hello", loaded[0].Guess)
}

func TestSQLiteWonStatesOrdering(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	record := func(player string, solvedOffset time.Duration) {
		st := game.NewState(player, storeDate, storeNow)
		st, fb, err := game.RecordAttempt(st, "hello", "hello", storeNow.Add(solvedOffset))
		require.NoError(t, err)
		require.NoError(t, s.RecordAttempt(ctx, st, game.Attempt{Ordinal: 1, Guess: "hello", Feedback: fb}))
	}
	record("charlie", 30*time.Second)
	record("alice", 90*time.Second)
	record("bravo", 30*time.Second)

	won, err := s.WonStates(ctx, storeDate)
	require.NoError(t, err)
	require.Len(t, won, 3)
	assert.Equal(t, "bravo", won[0].Player)
	assert.Equal(t, "charlie", won[1].Player)
	assert.Equal(t, "alice", won[2].Player)
}
