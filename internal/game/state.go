// internal/game/state.go
//
// Game progression state machine. A State is a plain value and
// RecordAttempt is a pure transition function, so the same machine serves
// both tracks: the authenticated track persists the state behind a store,
// the anonymous track holds it client-side. The machine owns only status,
// count, and timestamps; accumulating the ordered attempt list is the
// caller's responsibility.
//
// Transitions: NOT_STARTED → IN_PROGRESS → {WON, LOST}. WON and LOST are
// terminal; recording an attempt on a terminal state is rejected, never
// silently ignored.
package game

import (
	"errors"
	"fmt"
	"time"
)

// MaxAttempts is the attempt ceiling; reaching it without a win loses the game.
const MaxAttempts = 6

// Status enumerates the game lifecycle.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusWon        Status = "WON"
	StatusLost       Status = "LOST"
)

// Terminal reports whether no further attempts may be recorded.
func (s Status) Terminal() bool { return s == StatusWon || s == StatusLost }

// ParseStatus validates a wire-form status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNotStarted, StatusInProgress, StatusWon, StatusLost:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown game status %q", s)
}

// ErrGameFinished rejects attempts recorded past game end.
var ErrGameFinished = errors.New("game already finished")

// State is the progression of one (player, word) pair. Player is empty on
// the anonymous track.
type State struct {
	Player        string
	Date          string // day key of the active word, YYYY-MM-DD
	Status        Status
	AttemptsCount int
	StartedAt     time.Time
	SolvedAt      *time.Time // set iff Status == WON
}

// Attempt is one recorded guess with its feedback. Ordinals are 1-based
// and contiguous per (player, word).
type Attempt struct {
	Ordinal  int
	Guess    string
	Feedback Feedback
}

// NewState returns a fresh NOT_STARTED state for player and date.
func NewState(player, date string, now time.Time) State {
	return State{Player: player, Date: date, Status: StatusNotStarted, StartedAt: now.UTC()}
}

// RecordAttempt classifies guess against target and advances s.
//
// Returns the updated state and the attempt's feedback. The state passed
// in is never mutated; on error it is returned unchanged.
func RecordAttempt(s State, target, guess string, now time.Time) (State, Feedback, error) {
	if s.Status.Terminal() {
		return s, nil, ErrGameFinished
	}
	if s.AttemptsCount >= MaxAttempts {
		// Unreachable when status and count agree; the ceiling holds
		// even against an inconsistent count.
		return s, nil, ErrGameFinished
	}
	fb, err := Classify(target, guess)
	if err != nil {
		return s, nil, err
	}

	if s.StartedAt.IsZero() {
		s.StartedAt = now.UTC()
	}
	s.AttemptsCount++
	switch {
	case fb.AllCorrect():
		s.Status = StatusWon
		t := now.UTC()
		s.SolvedAt = &t
	case s.AttemptsCount >= MaxAttempts:
		s.Status = StatusLost
	default:
		s.Status = StatusInProgress
	}
	return s, fb, nil
}
