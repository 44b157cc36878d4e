package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordaday/internal/game"
	"wordaday/internal/store"
	"wordaday/internal/words"
)

var (
	fixedNow  = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	fixedDate = "2026-08-29"
	testSalt  = "test_salt"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	require.NoError(t, words.Init())
	return New(store.NewMemory(), Config{
		JWTSecret: "test_secret",
		DailySalt: testSalt,
		RateRPS:   10000,
		RateBurst: 10000,
		Now:       func() time.Time { return fixedNow },
	})
}

// targetWord resolves today's answer the same way the server does.
func targetWord(t *testing.T) string {
	t.Helper()
	w, err := words.WordForDate(fixedNow, testSalt)
	require.NoError(t, err)
	return w
}

// wrongGuess returns an allowed word that is not today's answer.
func wrongGuess(t *testing.T) string {
	t.Helper()
	target := targetWord(t)
	for _, w := range []string{"hello", "world", "crane"} {
		if w != target {
			return w
		}
	}
	t.Fatal("no wrong guess available")
	return ""
}

func doJSON(t *testing.T, s *Server, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

// signup creates an account and returns its auth cookies.
func signup(t *testing.T, s *Server, username string) []*http.Cookie {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/auth/signup",
		map[string]string{"username": username, "password": "hunter2hunter2"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "signup must set the auth cookie")
	return cookies
}

func TestHealthAndIndex(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, doJSON(t, s, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, s, http.MethodGet, "/", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodGet, "/nope", nil, nil).Code)
}

func TestWordOfTheDay(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/word-of-the-day", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeBody[wordOfTheDayRes](t, rec)
	assert.Equal(t, fixedDate, res.Date)
	assert.Equal(t, game.MaxAttempts, res.MaxAttempts)
	assert.NotContains(t, rec.Body.String(), targetWord(t), "the answer never leaves the server")
}

func TestAnonymousAttempt(t *testing.T) {
	s := newTestServer(t)

	t.Run("winning guess", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/attempt",
			attemptReq{Guess: targetWord(t)}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decodeBody[attemptRes](t, rec)
		assert.Equal(t, "CCCCC", res.Feedback)
		assert.Equal(t, 1, res.AttemptNumber)
		assert.Equal(t, string(game.StatusWon), res.Status)
	})

	t.Run("wrong guess with client-held count", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/attempt",
			attemptReq{Guess: wrongGuess(t), AttemptsCount: 2}, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decodeBody[attemptRes](t, rec)
		assert.Equal(t, 3, res.AttemptNumber)
		assert.Equal(t, string(game.StatusInProgress), res.Status)
	})

	t.Run("ceiling enforced from client record", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/attempt",
			attemptReq{Guess: wrongGuess(t), AttemptsCount: game.MaxAttempts}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "game_finished")
	})

	t.Run("terminal status enforced from client record", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/attempt",
			attemptReq{Guess: wrongGuess(t), AttemptsCount: 3, Status: string(game.StatusWon)}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown word rejected before the engine runs", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: "zzzzz"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "not in word list")
	})

	t.Run("short word rejected", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: "hi"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)

	signup(t, s, "alice")

	rec := doJSON(t, s, http.MethodPost, "/auth/signup",
		map[string]string{"username": "ALICE", "password": "hunter2hunter2"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "usernames collide ignoring case")

	rec = doJSON(t, s, http.MethodPost, "/auth/signup",
		map[string]string{"username": "ab", "password": "hunter2hunter2"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/auth/signup",
		map[string]string{"username": "bob", "password": "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/auth/signup",
		map[string]string{"username": "bad name!", "password": "hunter2hunter2"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)
	signup(t, s, "alice")

	rec := doJSON(t, s, http.MethodPost, "/auth/login",
		map[string]string{"username": "alice", "password": "hunter2hunter2"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = doJSON(t, s, http.MethodGet, "/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[authUser](t, rec)
	assert.Equal(t, "alice", me.Username)

	rec = doJSON(t, s, http.MethodPost, "/auth/login",
		map[string]string{"username": "alice", "password": "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenAccepted(t *testing.T) {
	s := newTestServer(t)
	cookies := signup(t, s, "alice")

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+cookies[0].Value)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decodeBody[authUser](t, rec).Username)
}

func TestAuthenticatedGameFlow(t *testing.T) {
	s := newTestServer(t)
	cookies := signup(t, s, "alice")
	target := targetWord(t)
	wrong := wrongGuess(t)

	// Fresh day: empty state.
	rec := doJSON(t, s, http.MethodGet, "/api/game-state", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[gameStateRes](t, rec)
	assert.Equal(t, string(game.StatusNotStarted), st.Status)
	assert.Zero(t, st.AttemptsCount)
	assert.Empty(t, st.Attempts)

	// Miss, then solve.
	rec = doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: wrong}, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(game.StatusInProgress), decodeBody[attemptRes](t, rec).Status)

	rec = doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: target}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	win := decodeBody[attemptRes](t, rec)
	assert.Equal(t, "CCCCC", win.Feedback)
	assert.Equal(t, 2, win.AttemptNumber)
	assert.Equal(t, string(game.StatusWon), win.Status)

	// Progress persisted and consistent.
	rec = doJSON(t, s, http.MethodGet, "/api/game-state", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeBody[gameStateRes](t, rec)
	assert.Equal(t, string(game.StatusWon), st.Status)
	assert.Equal(t, 2, st.AttemptsCount)
	require.Len(t, st.Attempts, 2)
	assert.Equal(t, wrong, st.Attempts[0].Guess)
	assert.Equal(t, "CCCCC", st.Attempts[1].Feedback)

	// Finished games reject further guesses.
	rec = doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: wrong}, cookies)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "game_finished")
}

func TestLeaderboard(t *testing.T) {
	s := newTestServer(t)
	target := targetWord(t)

	rec := doJSON(t, s, http.MethodGet, "/api/leaderboard", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "leaderboard is gated")

	alice := signup(t, s, "alice")
	bob := signup(t, s, "bob")

	// Alice solves in two guesses, Bob in one.
	doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: wrongGuess(t)}, alice)
	doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: target}, alice)
	doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: target}, bob)

	rec = doJSON(t, s, http.MethodGet, "/api/leaderboard", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	lb := decodeBody[leaderboardRes](t, rec)
	assert.Equal(t, fixedDate, lb.Date)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, "bob", lb.Entries[0].Username)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, 1, lb.Entries[0].Attempts)
	assert.Equal(t, "alice", lb.Entries[1].Username)
	assert.Equal(t, 2, lb.Entries[1].Rank)
	require.NotNil(t, lb.CurrentUserRank)
	assert.Equal(t, 2, *lb.CurrentUserRank)

	// A player who has not solved today has no rank.
	carol := signup(t, s, "carol")
	rec = doJSON(t, s, http.MethodGet, "/api/leaderboard", nil, carol)
	require.Equal(t, http.StatusOK, rec.Code)
	lb = decodeBody[leaderboardRes](t, rec)
	assert.Nil(t, lb.CurrentUserRank)
	assert.Len(t, lb.Entries, 2)
}

func TestReconcile(t *testing.T) {
	s := newTestServer(t)
	target := targetWord(t)
	wrong := wrongGuess(t)

	rec := doJSON(t, s, http.MethodPost, "/api/reconcile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookies := signup(t, s, "alice")
	body := reconcileReq{
		Date:      fixedDate,
		StartedAt: fixedNow.Add(-5 * time.Minute),
		Attempts: []reconcileAttempt{
			{Ordinal: 1, Guess: wrong},
			{Ordinal: 2, Guess: target},
		},
	}

	rec = doJSON(t, s, http.MethodPost, "/api/reconcile", body, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[reconcileRes](t, rec)
	assert.Equal(t, "applied", res.Outcome)
	assert.Equal(t, string(game.StatusWon), res.Status)
	assert.Equal(t, 2, res.AttemptsCount)
	assert.True(t, res.ClearLocal)

	// Replaying the same record is a no-op conflict.
	rec = doJSON(t, s, http.MethodPost, "/api/reconcile", body, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeBody[reconcileRes](t, rec)
	assert.Equal(t, "conflict", res.Outcome)
	assert.Equal(t, 2, res.AttemptsCount)
	assert.True(t, res.ClearLocal)

	// The imported win shows up everywhere.
	rec = doJSON(t, s, http.MethodGet, "/api/game-state", nil, cookies)
	st := decodeBody[gameStateRes](t, rec)
	assert.Equal(t, string(game.StatusWon), st.Status)
	require.Len(t, st.Attempts, 2)
	assert.Equal(t, "CCCCC", st.Attempts[1].Feedback)

	rec = doJSON(t, s, http.MethodGet, "/api/leaderboard", nil, cookies)
	lb := decodeBody[leaderboardRes](t, rec)
	require.NotNil(t, lb.CurrentUserRank)
	assert.Equal(t, 1, *lb.CurrentUserRank)
}

func TestReconcileOutcomes(t *testing.T) {
	s := newTestServer(t)
	wrong := wrongGuess(t)

	t.Run("stale date", func(t *testing.T) {
		cookies := signup(t, s, "stale_player")
		body := reconcileReq{
			Date:      "2026-08-28",
			StartedAt: fixedNow,
			Attempts:  []reconcileAttempt{{Ordinal: 1, Guess: wrong}},
		}
		res := decodeBody[reconcileRes](t, doJSON(t, s, http.MethodPost, "/api/reconcile", body, cookies))
		assert.Equal(t, "stale_date", res.Outcome)
		assert.True(t, res.ClearLocal)
	})

	t.Run("empty record", func(t *testing.T) {
		cookies := signup(t, s, "empty_player")
		body := reconcileReq{Date: fixedDate, StartedAt: fixedNow}
		res := decodeBody[reconcileRes](t, doJSON(t, s, http.MethodPost, "/api/reconcile", body, cookies))
		assert.Equal(t, "empty", res.Outcome)
	})

	t.Run("corrupt record rejected", func(t *testing.T) {
		cookies := signup(t, s, "corrupt_player")
		body := reconcileReq{
			Date:      fixedDate,
			StartedAt: fixedNow,
			Attempts: []reconcileAttempt{
				{Ordinal: 1, Guess: wrong},
				{Ordinal: 5, Guess: wrong},
			},
		}
		rec := doJSON(t, s, http.MethodPost, "/api/reconcile", body, cookies)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decodeBody[reconcileRes](t, rec)
		assert.Equal(t, "rejected", res.Outcome)
		assert.Zero(t, res.AttemptsCount)
		assert.True(t, res.ClearLocal)
	})

	t.Run("existing server progress wins", func(t *testing.T) {
		cookies := signup(t, s, "device_two")
		doJSON(t, s, http.MethodPost, "/api/attempt", attemptReq{Guess: wrong}, cookies)

		body := reconcileReq{
			Date:      fixedDate,
			StartedAt: fixedNow,
			Attempts:  []reconcileAttempt{{Ordinal: 1, Guess: wrong}},
		}
		res := decodeBody[reconcileRes](t, doJSON(t, s, http.MethodPost, "/api/reconcile", body, cookies))
		assert.Equal(t, "conflict", res.Outcome)
		assert.Equal(t, 1, res.AttemptsCount)
	})
}

func TestRateLimit(t *testing.T) {
	require.NoError(t, words.Init())
	s := New(store.NewMemory(), Config{
		DailySalt: testSalt,
		RateRPS:   1,
		RateBurst: 2,
		Now:       func() time.Time { return fixedNow },
	})

	// httptest requests share one RemoteAddr, so they share one limiter.
	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, doJSON(t, s, http.MethodGet, "/health", nil, nil).Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2], fmt.Sprintf("codes: %v", codes))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/attempt", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
