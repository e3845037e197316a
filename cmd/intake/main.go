// Command intake runs the HTTP API that accepts lead submissions, persists
// them, and publishes a lead.created event for the worker pool to triage.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nearline/leadtriage/internal/config"
	"github.com/nearline/leadtriage/internal/eventlog"
	"github.com/nearline/leadtriage/internal/httpapi"
	"github.com/nearline/leadtriage/internal/idempotency"
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

	eventLog := eventlog.New(redisClient, cfg.RedisStream, cfg.RedisConsumerGroup, cfg.RedisDLQStream)
	if err := eventLog.EnsureGroup(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure consumer group")
	}

	idemStore := idempotency.New(redisClient, cfg.IdempotencyTTL)

	handler := httpapi.NewIntakeRouter(
		s, eventLog, idemStore, redisClient,
		cfg.MaxBodyBytes, 10*time.Second, []string{"*"}, log,
	)

	srv := &http.Server{
		Addr:    cfg.IntakeAddr,
		Handler: handler,
	}

	go func() {
		log.Info().Str("addr", cfg.IntakeAddr).Msg("intake API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("intake API crashed")
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
