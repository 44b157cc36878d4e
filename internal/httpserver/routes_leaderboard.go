// internal/httpserver/routes_leaderboard.go
//
// Leaderboard route: aggregates the day's WON states through the ranking
// engine. Records that fail integrity checks are logged and excluded so
// one corrupt row cannot take the whole board down. The read is a
// snapshot; it may trail an in-flight attempt by one commit.
package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"wordaday/internal/daily"
	"wordaday/internal/rank"
)

type leaderboardEntryRes struct {
	Username         string `json:"username"`
	Attempts         int    `json:"attempts"`
	SolveTimeSeconds int64  `json:"solveTimeSeconds"`
	Score            int64  `json:"score"`
	Rank             int    `json:"rank"`
}

type leaderboardRes struct {
	Date            string                `json:"date"`
	Entries         []leaderboardEntryRes `json:"entries"`
	CurrentUserRank *int                  `json:"currentUserRank"`
}

// handleLeaderboard returns the ranked solvers of the active word.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	date := daily.DateKey(s.cfg.Now())

	states, err := s.store.WonStates(r.Context(), date)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("load won states")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}

	lb, bad := rank.Build(states, me.ID)
	for _, e := range bad {
		log.Warn().Str("player", e.Player).Str("reason", e.Reason).Msg("leaderboard entry excluded")
	}

	res := leaderboardRes{
		Date: date,
		Entries: lo.Map(lb.Entries, func(e rank.Entry, _ int) leaderboardEntryRes {
			return leaderboardEntryRes{
				Username:         s.usernameFor(r, e.Player),
				Attempts:         e.Attempts,
				SolveTimeSeconds: e.SolveSeconds,
				Score:            e.Score,
				Rank:             e.Rank,
			}
		}),
	}
	if lb.CurrentUserRank > 0 {
		res.CurrentUserRank = &lb.CurrentUserRank
	}
	_ = json.NewEncoder(w).Encode(res)
}

// usernameFor resolves a display name, falling back to the raw player ID.
func (s *Server) usernameFor(r *http.Request, playerID string) string {
	u, err := s.store.UserByID(r.Context(), playerID)
	if err != nil {
		return playerID
	}
	return u.Username
}
