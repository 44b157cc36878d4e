// internal/store/sqlite.go
//
// SQLite-backed Store.
// Responsibilities:
//   - Open the database with safe defaults (WAL, busy timeout, FK).
//   - Apply the idempotent schema at open.
//   - Map unique-constraint violations to ErrConflict.
//
// Timestamps are stored as RFC3339 UTC strings; solved_at is NULL until
// the game is won.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"wordaday/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE COLLATE NOCASE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS game_states (
    player         TEXT NOT NULL,
    date           TEXT NOT NULL,
    status         TEXT NOT NULL,
    attempts_count INTEGER NOT NULL DEFAULT 0,
    started_at     TEXT NOT NULL,
    solved_at      TEXT,
    PRIMARY KEY (player, date)
);

CREATE TABLE IF NOT EXISTS game_attempts (
    player     TEXT NOT NULL,
    date       TEXT NOT NULL,
    ordinal    INTEGER NOT NULL,
    guess      TEXT NOT NULL,
    feedback   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (player, date, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_game_states_date_status ON game_states (date, status);
`

// SQLite implements Store on a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if missing) the database at dsn and applies
// the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	log.Info().Str("dsn", dsn).Msg("sqlite store ready")
	return &SQLite{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// mapErr converts driver-level constraint violations to ErrConflict.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return ErrConflict
	}
	return err
}

/* ------------------------------- users --------------------------------- */

func (s *SQLite) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339))
	return mapErr(err)
}

func (s *SQLite) UserByUsername(ctx context.Context, username string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ? COLLATE NOCASE`,
		username)
	return scanUser(row)
}

func (s *SQLite) UserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return u, nil
}

/* ---------------------------- game progress ----------------------------- */

func (s *SQLite) GameState(ctx context.Context, player, date string) (game.State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT player, date, status, attempts_count, started_at, solved_at
		 FROM game_states WHERE player = ? AND date = ?`, player, date)
	return scanState(row.Scan)
}

func scanState(scan func(dest ...any) error) (game.State, error) {
	var st game.State
	var status, started string
	var solved sql.NullString
	if err := scan(&st.Player, &st.Date, &status, &st.AttemptsCount, &started, &solved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.State{}, ErrNotFound
		}
		return game.State{}, err
	}
	parsed, err := game.ParseStatus(status)
	if err != nil {
		return game.State{}, err
	}
	st.Status = parsed
	st.StartedAt, _ = time.Parse(time.RFC3339, started)
	if solved.Valid {
		t, _ := time.Parse(time.RFC3339, solved.String)
		st.SolvedAt = &t
	}
	return st, nil
}

func (s *SQLite) Attempts(ctx context.Context, player, date string) ([]game.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ordinal, guess, feedback FROM game_attempts
		 WHERE player = ? AND date = ? ORDER BY ordinal ASC`, player, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Attempt
	for rows.Next() {
		var a game.Attempt
		var code string
		if err := rows.Scan(&a.Ordinal, &a.Guess, &code); err != nil {
			return nil, err
		}
		if a.Feedback, err = game.ParseFeedbackCode(code); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) RecordAttempt(ctx context.Context, st game.State, a game.Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertState(ctx, tx, st); err != nil {
		return mapErr(err)
	}
	if err := insertAttempt(ctx, tx, st, a); err != nil {
		return mapErr(err)
	}
	return tx.Commit()
}

func (s *SQLite) ImportGame(ctx context.Context, st game.State, attempts []game.Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM game_attempts WHERE player = ? AND date = ?`,
		st.Player, st.Date).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return ErrConflict
	}
	if err := upsertState(ctx, tx, st); err != nil {
		return mapErr(err)
	}
	for _, a := range attempts {
		if err := insertAttempt(ctx, tx, st, a); err != nil {
			return mapErr(err)
		}
	}
	return tx.Commit()
}

func upsertState(ctx context.Context, tx *sql.Tx, st game.State) error {
	var solved any
	if st.SolvedAt != nil {
		solved = st.SolvedAt.UTC().Format(time.RFC3339)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO game_states (player, date, status, attempts_count, started_at, solved_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(player, date) DO UPDATE SET
			status = excluded.status,
			attempts_count = excluded.attempts_count,
			solved_at = excluded.solved_at`,
		st.Player, st.Date, string(st.Status), st.AttemptsCount,
		st.StartedAt.UTC().Format(time.RFC3339), solved)
	return err
}

func insertAttempt(ctx context.Context, tx *sql.Tx, st game.State, a game.Attempt) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO game_attempts (player, date, ordinal, guess, feedback, created_at)
		VALUES (?,?,?,?,?,?)`,
		st.Player, st.Date, a.Ordinal, a.Guess, a.Feedback.Code(),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLite) WonStates(ctx context.Context, date string) ([]game.State, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player, date, status, attempts_count, started_at, solved_at
		FROM game_states
		WHERE date = ? AND status = ?
		ORDER BY solved_at ASC, player ASC`, date, string(game.StatusWon))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.State
	for rows.Next() {
		st, err := scanState(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
