// internal/httpserver/routes_game.go
//
// Game-play routes: the day's metadata, per-player game state, attempt
// submission for both tracks, and login-time reconciliation of anonymous
// progress. Handlers validate guesses against the word list, run the
// progression state machine, and persist through the store; the target
// word itself never leaves the server.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"wordaday/internal/daily"
	"wordaday/internal/game"
	"wordaday/internal/reconcile"
	"wordaday/internal/store"
	"wordaday/internal/words"
)

// activeWord resolves the current day key and its target word.
func (s *Server) activeWord() (date, target string, err error) {
	now := s.cfg.Now()
	target, err = words.WordForDate(now, s.cfg.DailySalt)
	return daily.DateKey(now), target, err
}

/* --------------------------- word of the day ------------------------------ */

type wordOfTheDayRes struct {
	Date        string `json:"date"`
	MaxAttempts int    `json:"maxAttempts"`
}

// handleWordOfTheDay returns the active day key. Never the word.
func (s *Server) handleWordOfTheDay(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(wordOfTheDayRes{
		Date:        daily.DateKey(s.cfg.Now()),
		MaxAttempts: game.MaxAttempts,
	})
}

/* ----------------------------- game state --------------------------------- */

type attemptInfo struct {
	Guess    string `json:"guess"`
	Feedback string `json:"feedback"`
}

type gameStateRes struct {
	Status        string        `json:"status"`
	AttemptsCount int           `json:"attemptsCount"`
	Attempts      []attemptInfo `json:"attempts"`
	MaxAttempts   int           `json:"maxAttempts"`
}

func emptyGameState() gameStateRes {
	return gameStateRes{
		Status:      string(game.StatusNotStarted),
		Attempts:    []attemptInfo{},
		MaxAttempts: game.MaxAttempts,
	}
}

// handleGameState returns the caller's progress for the active word.
// Anonymous players hold their own record client-side and get an empty
// state here.
func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	if me == nil {
		_ = json.NewEncoder(w).Encode(emptyGameState())
		return
	}

	date := daily.DateKey(s.cfg.Now())
	st, err := s.store.GameState(r.Context(), me.ID, date)
	if errors.Is(err, store.ErrNotFound) {
		_ = json.NewEncoder(w).Encode(emptyGameState())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("player", me.ID).Msg("load game state")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	attempts, err := s.store.Attempts(r.Context(), me.ID, date)
	if err != nil {
		log.Error().Err(err).Str("player", me.ID).Msg("load attempts")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(gameStateRes{
		Status:        string(st.Status),
		AttemptsCount: st.AttemptsCount,
		Attempts: lo.Map(attempts, func(a game.Attempt, _ int) attemptInfo {
			return attemptInfo{Guess: a.Guess, Feedback: a.Feedback.Code()}
		}),
		MaxAttempts: game.MaxAttempts,
	})
}

/* ------------------------------- attempt ----------------------------------- */

type attemptReq struct {
	Guess string `json:"guess"`
	// Anonymous track only: the client-held session record, so the
	// attempt ceiling and terminal-status rules still apply without
	// server persistence.
	AttemptsCount int    `json:"attemptsCount,omitempty"`
	Status        string `json:"status,omitempty"`
}

type attemptRes struct {
	Guess         string `json:"guess"`
	Feedback      string `json:"feedback"`
	AttemptNumber int    `json:"attemptNumber"`
	Status        string `json:"status"`
}

// handleAttempt validates, classifies, and records one guess.
func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	guess, err := words.ValidateGuess(req.Guess)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	date, target, err := s.activeWord()
	if err != nil {
		log.Error().Err(err).Msg("resolve daily word")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}

	if me := currentUser(r); me != nil {
		s.attemptAuthenticated(w, r, me, date, target, guess)
		return
	}
	s.attemptAnonymous(w, req, date, target, guess)
}

// attemptAuthenticated advances the persisted state for (player, date).
func (s *Server) attemptAuthenticated(w http.ResponseWriter, r *http.Request, me *authUser, date, target, guess string) {
	unlock := s.lockKey(me.ID, date)
	defer unlock()

	now := s.cfg.Now()
	st, err := s.store.GameState(r.Context(), me.ID, date)
	if errors.Is(err, store.ErrNotFound) {
		st = game.NewState(me.ID, date, now)
	} else if err != nil {
		log.Error().Err(err).Str("player", me.ID).Msg("load game state")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}

	next, fb, err := game.RecordAttempt(st, target, guess, now)
	if errors.Is(err, game.ErrGameFinished) {
		http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	attempt := game.Attempt{Ordinal: next.AttemptsCount, Guess: guess, Feedback: fb}
	if err := s.store.RecordAttempt(r.Context(), next, attempt); err != nil {
		log.Error().Err(err).Str("player", me.ID).Int("ordinal", attempt.Ordinal).Msg("persist attempt")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	if next.Status.Terminal() {
		log.Info().Str("player", me.ID).Str("date", date).
			Str("status", string(next.Status)).Int("attempts", next.AttemptsCount).
			Msg("game finished")
	}
	_ = json.NewEncoder(w).Encode(attemptRes{
		Guess:         guess,
		Feedback:      fb.Code(),
		AttemptNumber: next.AttemptsCount,
		Status:        string(next.Status),
	})
}

// attemptAnonymous runs the same state machine against the client-held
// record. Nothing is persisted; the caller keeps the returned state.
func (s *Server) attemptAnonymous(w http.ResponseWriter, req attemptReq, date, target, guess string) {
	status := game.StatusNotStarted
	if req.Status != "" {
		var err error
		if status, err = game.ParseStatus(req.Status); err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
			return
		}
	} else if req.AttemptsCount > 0 {
		status = game.StatusInProgress
	}

	now := s.cfg.Now()
	st := game.State{Date: date, Status: status, AttemptsCount: req.AttemptsCount, StartedAt: now}
	next, fb, err := game.RecordAttempt(st, target, guess, now)
	if errors.Is(err, game.ErrGameFinished) {
		http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(attemptRes{
		Guess:         guess,
		Feedback:      fb.Code(),
		AttemptNumber: next.AttemptsCount,
		Status:        string(next.Status),
	})
}

/* ------------------------------ reconcile ---------------------------------- */

type reconcileAttempt struct {
	Ordinal int    `json:"ordinal"`
	Guess   string `json:"guess"`
}

type reconcileReq struct {
	Date      string             `json:"date"`
	StartedAt time.Time          `json:"startedAt"`
	SolvedAt  *time.Time         `json:"solvedAt,omitempty"`
	Attempts  []reconcileAttempt `json:"attempts"`
}

type reconcileRes struct {
	Outcome       string `json:"outcome"`
	Status        string `json:"status"`
	AttemptsCount int    `json:"attemptsCount"`
	// ClearLocal is always true: whatever the outcome, the client must
	// drop its local record so it can never be replayed again.
	ClearLocal bool `json:"clearLocal"`
}

// handleReconcile merges the client's anonymous record into the player's
// server state. Runs once, right after login; repeats are no-ops.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var req reconcileReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	date, target, err := s.activeWord()
	if err != nil {
		log.Error().Err(err).Msg("resolve daily word")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}

	unlock := s.lockKey(me.ID, date)
	defer unlock()

	now := s.cfg.Now()
	server, err := s.store.GameState(r.Context(), me.ID, date)
	if errors.Is(err, store.ErrNotFound) {
		server = game.NewState(me.ID, date, now)
	} else if err != nil {
		log.Error().Err(err).Str("player", me.ID).Msg("load game state")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}

	local := reconcile.LocalRecord{
		Date:      req.Date,
		StartedAt: req.StartedAt,
		SolvedAt:  req.SolvedAt,
		Attempts: lo.Map(req.Attempts, func(a reconcileAttempt, _ int) game.Attempt {
			return game.Attempt{Ordinal: a.Ordinal, Guess: a.Guess}
		}),
	}

	res, err := reconcile.Reconcile(local, server, target, date, now)
	if err != nil {
		// Corrupt local record: discarded, server state untouched. Not a
		// player-facing failure.
		log.Warn().Err(err).Str("player", me.ID).Msg("local record rejected")
	}
	if res.Outcome == reconcile.OutcomeApplied {
		if err := s.store.ImportGame(r.Context(), res.State, res.Attempts); err != nil {
			if errors.Is(err, store.ErrConflict) {
				// Another device won the race; same conservative policy.
				res = reconcile.Result{State: server, Outcome: reconcile.OutcomeConflict}
			} else {
				log.Error().Err(err).Str("player", me.ID).Msg("import reconciled game")
				http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
				return
			}
		}
	}
	log.Info().Str("player", me.ID).Str("outcome", string(res.Outcome)).
		Int("attempts", res.State.AttemptsCount).Msg("reconciliation")
	_ = json.NewEncoder(w).Encode(reconcileRes{
		Outcome:       string(res.Outcome),
		Status:        string(res.State.Status),
		AttemptsCount: res.State.AttemptsCount,
		ClearLocal:    true,
	})
}
