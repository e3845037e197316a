// Command insight runs the read-only HTTP API that serves triage insights
// once the worker pool has classified a lead's note.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nearline/leadtriage/internal/config"
	"github.com/nearline/leadtriage/internal/httpapi"
	"github.com/nearline/leadtriage/internal/logger"
	"github.com/nearline/leadtriage/internal/redisconn"
	"github.com/nearline/leadtriage/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer s.Close()

	redisClient, err := redisconn.New(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("build redis client")
	}
	defer redisClient.Close()
	if err := redisconn.Ping(ctx, redisClient); err != nil {
		log.Fatal().Err(err).Msg("ping redis")
	}

	handler := httpapi.NewInsightRouter(s, redisClient, 10*time.Second, []string{"*"}, log)

	srv := &http.Server{
		Addr:    cfg.InsightAddr,
		Handler: handler,
	}

	go func() {
		log.Info().Str("addr", cfg.InsightAddr).Msg("insight API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("insight API crashed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
