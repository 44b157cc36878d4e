// internal/httpserver/server.go
//
// HTTP wiring for the daily word game backend.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, JSON,
//     credentials-enabled CORS, per-IP rate limiting, handler timeouts).
//   - Public endpoints: "/", "/health", "/api/word-of-the-day".
//   - Game endpoints (optional auth): game state, attempt submission.
//   - Gated endpoints: reconcile, leaderboard, /auth/me.
//   - SSE stream for word rotation (mounted outside the timeout group).
//
// Notes:
//   - Optional auth decorates requests with user context when a valid
//     token is present; anonymous players can still submit attempts.
//   - Requests for the same (player, day) are serialized per key so the
//     attempt ceiling holds against duplicate retries.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"wordaday/internal/store"
)

// Config carries environment-derived server settings. Zero values fall
// back to development defaults in New.
type Config struct {
	JWTSecret    string
	CookieName   string
	DailySalt    string
	ClientOrigin string
	RateRPS      int
	RateBurst    int
	Now          func() time.Time // injectable clock for tests
}

// Server bundles router, store, config, and the rotation broadcaster.
type Server struct {
	r      *chi.Mux
	store  store.Store
	cfg    Config
	events *Broadcaster

	httpSrv *http.Server

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter

	keyMu   sync.Mutex
	keyLock map[string]*sync.Mutex
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "wordaday_token"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev_secret_change_me"
	}
	if cfg.DailySalt == "" {
		cfg.DailySalt = "local_dev_salt"
	}
	if cfg.RateRPS <= 0 {
		cfg.RateRPS = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}

	s := &Server{
		r:        chi.NewRouter(),
		store:    st,
		cfg:      cfg,
		events:   NewBroadcaster(),
		limiters: make(map[string]*rate.Limiter),
		keyLock:  make(map[string]*sync.Mutex),
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.corsFromConfig)

	// SSE connections outlive any sane handler timeout; keep the stream
	// outside the timeout group.
	s.r.Get("/api/events/word-of-the-day", s.events.ServeHTTP)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)
		r.Use(s.rateLimit)

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"wordaday","endpoints":["/health","/api/word-of-the-day","GET /api/game-state","POST /api/attempt","POST /api/reconcile","GET /api/leaderboard","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.With(s.withOptionalAuth).Get("/api/word-of-the-day", s.handleWordOfTheDay)
		r.With(s.withOptionalAuth).Get("/api/game-state", s.handleGameState)
		r.With(s.withOptionalAuth).Post("/api/attempt", s.handleAttempt)

		r.With(s.requireAuth).Post("/api/reconcile", s.handleReconcile)
		r.With(s.requireAuth).Get("/api/leaderboard", s.handleLeaderboard)

		s.mountAuthRoutes(r)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr and blocks until shutdown.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.r}
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains SSE clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.events.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// NotifyWordRotation broadcasts the new day key to SSE subscribers.
func (s *Server) NotifyWordRotation(date string) {
	s.events.Publish("word-of-the-day", `{"date":"`+date+`"}`)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromConfig enables credentialed CORS for a single origin.
func (s *Server) corsFromConfig(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterFor returns the per-client rate limiter, creating it on first use.
func (s *Server) limiterFor(key string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()
	if lim, ok := s.limiters[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(s.cfg.RateRPS), s.cfg.RateBurst)
	s.limiters[key] = lim
	return lim
}

// rateLimit enforces per-client-IP rate limiting.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiterFor(host).Allow() {
			http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// lockKey serializes handlers for the same (player, day) pair. Duplicate
// network retries for one player must not race past the attempt ceiling.
func (s *Server) lockKey(player, date string) func() {
	key := player + "|" + date
	s.keyMu.Lock()
	mu, ok := s.keyLock[key]
	if !ok {
		mu = &sync.Mutex{}
		s.keyLock[key] = mu
	}
	s.keyMu.Unlock()
	mu.Lock()
	return mu.Unlock
}
