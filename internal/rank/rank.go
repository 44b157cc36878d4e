// internal/rank/rank.go
//
// Leaderboard scoring for a day's solved games. Pure and stateless: the
// package consumes WON states persisted elsewhere and derives ranked
// entries, it never stores anything.
//
// Score = (AttemptsBase - attempts) * AttemptsWeight - solveSeconds.
// The weight makes attempt count dominate over solve time (typical solves
// run tens to low hundreds of seconds), so fewer attempts always outrank
// a faster but less efficient solve; among equal attempt counts the
// faster solve wins.
package rank

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"wordaday/internal/game"
)

const (
	AttemptsBase   = 7
	AttemptsWeight = 1000
)

// Score computes the leaderboard score for a solved game.
func Score(attempts int, solveSeconds int64) int64 {
	return int64(AttemptsBase-attempts)*AttemptsWeight - solveSeconds
}

// Entry is one leaderboard row. Entries are derived per request, never stored.
type Entry struct {
	Player       string
	Attempts     int
	SolveSeconds int64
	Score        int64
	Rank         int // 1-based position after sorting
}

// Leaderboard is the ranked result for one day's word.
type Leaderboard struct {
	Entries         []Entry
	CurrentUserRank int // 1-based; 0 when the player has not won the day's word
}

// IntegrityError flags a state that cannot be scored. The entry is
// excluded so one corrupt record cannot hide the whole day's leaderboard.
type IntegrityError struct {
	Player string
	Reason string
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("leaderboard entry for %q rejected: %s", e.Player, e.Reason)
}

// Build ranks the given WON states and locates currentPlayer among them.
//
// The sort is stable: equal scores keep their input order. Callers supply
// states in a deterministic order (the store returns them by solvedAt,
// then player) so tie resolution is reproducible for identical input.
func Build(states []game.State, currentPlayer string) (Leaderboard, []IntegrityError) {
	var bad []IntegrityError
	entries := make([]Entry, 0, len(states))
	for _, s := range states {
		if s.Status != game.StatusWon || s.SolvedAt == nil {
			bad = append(bad, IntegrityError{Player: s.Player, Reason: "not a solved game"})
			continue
		}
		if s.AttemptsCount < 1 || s.AttemptsCount > game.MaxAttempts {
			bad = append(bad, IntegrityError{
				Player: s.Player,
				Reason: fmt.Sprintf("attempts count %d out of range", s.AttemptsCount),
			})
			continue
		}
		secs := int64(s.SolvedAt.Sub(s.StartedAt) / time.Second)
		if secs < 0 {
			bad = append(bad, IntegrityError{Player: s.Player, Reason: "negative solve duration"})
			continue
		}
		entries = append(entries, Entry{
			Player:       s.Player,
			Attempts:     s.AttemptsCount,
			SolveSeconds: secs,
			Score:        Score(s.AttemptsCount, secs),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	for i := range entries {
		entries[i].Rank = i + 1
	}

	lb := Leaderboard{Entries: entries}
	if e, ok := lo.Find(entries, func(e Entry) bool { return e.Player == currentPlayer }); ok {
		lb.CurrentUserRank = e.Rank
	}
	return lb, bad
}
