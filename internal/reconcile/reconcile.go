// internal/reconcile/reconcile.go
//
// Merges a client-held anonymous game record into the authoritative
// server state when a player signs in. The merge runs at most once per
// (player, word): as soon as the server state carries any attempts,
// further local records for the same day are discarded — which is also
// what makes reconciliation idempotent.
//
// Conflict handling is deliberately lossy: if the player also played
// authenticated on another device, the local record is dropped rather
// than merged. Losing a redundant local session beats double-counting
// attempts.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"wordaday/internal/game"
)

// Outcome describes what Reconcile did with the local record.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"    // local attempts replayed into the server state
	OutcomeConflict Outcome = "conflict"   // server already had attempts; local discarded
	OutcomeStale    Outcome = "stale_date" // local record is for a past word; discarded
	OutcomeEmpty    Outcome = "empty"      // local record had no attempts
	OutcomeRejected Outcome = "rejected"   // local record failed validation; discarded
)

// LocalRecord is the client-held anonymous progress for one day. Only the
// guesses are trusted as input; feedback and status are recomputed by
// replaying through the state machine.
type LocalRecord struct {
	Date      string
	Attempts  []game.Attempt
	StartedAt time.Time
	SolvedAt  *time.Time
}

// Result is the outcome of one reconciliation run.
type Result struct {
	State    game.State     // server state after reconciliation
	Attempts []game.Attempt // replayed attempts to persist; empty unless applied
	Outcome  Outcome
}

// Reconcile merges local into server for the active day's word.
//
// Regardless of outcome the caller must clear the local record for the
// day afterwards; it may never be replayed again, even after further
// local mutation.
func Reconcile(local LocalRecord, server game.State, target, activeDate string, now time.Time) (Result, error) {
	if local.Date != activeDate {
		return Result{State: server, Outcome: OutcomeStale}, nil
	}
	if len(local.Attempts) == 0 {
		return Result{State: server, Outcome: OutcomeEmpty}, nil
	}
	if server.AttemptsCount > 0 || server.Status.Terminal() {
		return Result{State: server, Outcome: OutcomeConflict}, nil
	}
	if err := validate(local); err != nil {
		return Result{State: server, Outcome: OutcomeRejected}, err
	}

	startedAt := local.StartedAt
	if startedAt.IsZero() || startedAt.After(now) {
		startedAt = now
	}

	st := game.NewState(server.Player, activeDate, startedAt)
	replayed := make([]game.Attempt, 0, len(local.Attempts))
	for _, a := range local.Attempts {
		guess := strings.ToLower(strings.TrimSpace(a.Guess))
		next, fb, err := game.RecordAttempt(st, target, guess, now)
		if err != nil {
			return Result{State: server, Outcome: OutcomeRejected},
				fmt.Errorf("replay attempt %d: %w", a.Ordinal, err)
		}
		st = next
		replayed = append(replayed, game.Attempt{Ordinal: st.AttemptsCount, Guess: guess, Feedback: fb})
	}

	// Adopt the local solve timestamp when it is sane; fraud-resistant
	// timing is out of scope.
	if st.Status == game.StatusWon && local.SolvedAt != nil && !local.SolvedAt.Before(st.StartedAt) {
		t := local.SolvedAt.UTC()
		st.SolvedAt = &t
	}
	return Result{State: st, Attempts: replayed, Outcome: OutcomeApplied}, nil
}

// validate rejects local records that could not have been produced by the
// state machine: overflowing the ceiling or gapped/unordered ordinals.
func validate(local LocalRecord) error {
	if len(local.Attempts) > game.MaxAttempts {
		return fmt.Errorf("local record has %d attempts, ceiling is %d", len(local.Attempts), game.MaxAttempts)
	}
	for i, a := range local.Attempts {
		if a.Ordinal != i+1 {
			return fmt.Errorf("local attempts out of order: ordinal %d at position %d", a.Ordinal, i+1)
		}
	}
	return nil
}
