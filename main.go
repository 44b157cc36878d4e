// main.go
//
// Process bootstrap: environment, logging, word lists, store, HTTP
// server, daily rotation scheduler, graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wordaday/internal/daily"
	"wordaday/internal/httpserver"
	"wordaday/internal/store"
	"wordaday/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}
	answers, allowed := words.Stats()
	log.Info().Int("answers", answers).Int("allowed", allowed).Msg("word lists loaded")

	st, err := store.OpenSQLite(getEnv("DB_PATH", "./data/wordaday.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	srv := httpserver.New(st, httpserver.Config{
		JWTSecret:    os.Getenv("JWT_SECRET"),
		DailySalt:    getEnv("DAILY_SALT", "local_dev_salt"),
		ClientOrigin: os.Getenv("CLIENT_ORIGIN"),
		RateRPS:      getEnvInt("RATE_LIMIT_RPS", 10),
		RateBurst:    getEnvInt("RATE_LIMIT_BURST", 20),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go daily.RunRotation(ctx, srv.NotifyWordRotation)

	port := getEnv("PORT", "8080")
	go func() {
		log.Info().Str("port", port).Msg("starting wordaday server")
		if err := srv.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt reads an int from the environment or returns a fallback.
func getEnvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid int, using default")
		return def
	}
	return n
}
