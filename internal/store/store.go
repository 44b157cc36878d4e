// internal/store/store.go
//
// Persistence boundary for users, game states, and attempts, keyed by
// (player, date). Implementations must give strict per-key ordering:
// writes for the same player and day are serialized (the SQLite backend
// does this with a single-writer transaction, the in-memory backend with
// a mutex) so the attempt ceiling and terminal-status invariants hold
// under duplicate submissions.
package store

import (
	"context"
	"errors"
	"time"

	"wordaday/internal/game"
)

var (
	// ErrNotFound is returned for missing users or game states.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique-constraint violations
	// (username taken, duplicate attempt ordinal).
	ErrConflict = errors.New("conflict")
)

// User is an account row. Identity verification itself happens at the
// HTTP layer; the store only holds credentials.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store persists accounts and per-day game progress.
type Store interface {
	CreateUser(ctx context.Context, u User) error
	UserByUsername(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)

	// GameState returns the state for (player, date) or ErrNotFound.
	GameState(ctx context.Context, player, date string) (game.State, error)
	// Attempts returns the ordered attempt list for (player, date).
	Attempts(ctx context.Context, player, date string) ([]game.Attempt, error)
	// RecordAttempt persists the updated state and the new attempt
	// atomically, keeping attemptsCount == len(attempts).
	RecordAttempt(ctx context.Context, s game.State, a game.Attempt) error
	// ImportGame persists a reconciled state with its full attempt list
	// atomically. Fails with ErrConflict if attempts already exist.
	ImportGame(ctx context.Context, s game.State, attempts []game.Attempt) error
	// WonStates returns the day's solved games ordered by
	// (solvedAt, player) so leaderboard ties resolve deterministically.
	WonStates(ctx context.Context, date string) ([]game.State, error)

	Close() error
}
