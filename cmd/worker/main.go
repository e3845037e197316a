// Command worker runs the triage worker pool: it consumes lead.created
// events from the shared stream, classifies each lead's note, and persists
// the resulting insight.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearline/leadtriage/internal/analytics"
	"github.com/nearline/leadtriage/internal/classifier"
	"github.com/nearline/leadtriage/internal/config"
	"github.com/nearline/leadtriage/internal/eventlog"
	"github.com/nearline/leadtriage/internal/logger"
	"github.com/nearline/leadtriage/internal/observability"
	"github.com/nearline/leadtriage/internal/redisconn"
	"github.com/nearline/leadtriage/internal/store"
	"github.com/nearline/leadtriage/internal/worker"
)

const (
	dlqBacklogThreshold = 100
	dlqPollInterval     = 30 * time.Second
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

	registry := classifier.NewRegistry()
	registry.Register(classifier.NewRuleBased())

	pool := classifier.NewConnectionPool(classifier.DefaultPoolConfig())
	defer pool.Close()
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		registry.Register(classifier.NewOpenAIAdapter(pool, os.Getenv("OPENAI_BASE_URL"), key, os.Getenv("OPENAI_MODEL"), 0))
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		registry.Register(classifier.NewOllamaAdapter(pool, baseURL, os.Getenv("OLLAMA_MODEL"), 0))
	}

	selected, err := registry.Select(cfg.LLMAdapter)
	if err != nil {
		log.Fatal().Err(err).Str("requested_adapter", cfg.LLMAdapter).Msg("resolve classifier adapter")
	}
	log.Info().Str("adapter", selected.Name()).Strs("registered", registry.List()).Msg("classifier adapter selected")

	pagerDuty := observability.NewPagerDutyClient(observability.PagerDutyConfig{
		RoutingKey:  cfg.PagerDutyRoutingKey,
		Enabled:     cfg.PagerDutyRoutingKey != "",
		SourceName:  "leadtriage-worker",
		HTTPTimeout: 10 * time.Second,
	}, log)

	poller := classifier.NewHealthPoller(registry, log, 30*time.Second)
	poller.OnStatusChange(func(adapter string, healthy bool, status classifier.HealthStatus) {
		if healthy {
			if err := pagerDuty.AlertClassifierRecovered(adapter); err != nil {
				log.Error().Err(err).Str("adapter", adapter).Msg("resolve classifier alert")
			}
			return
		}
		if err := pagerDuty.AlertClassifierDown(adapter, status.Error); err != nil {
			log.Error().Err(err).Str("adapter", adapter).Msg("trigger classifier alert")
		}
	})
	poller.Start()
	defer poller.Stop()

	go watchDeadLetterBacklog(ctx, eventLog, pagerDuty, log)

	var analyticsSink analytics.Sink
	if cfg.ClickHouseDSN != "" {
		chSink, err := analytics.NewClickHouseSink(ctx, cfg.ClickHouseDSN, log)
		if err != nil {
			log.Error().Err(err).Msg("connect to clickhouse, falling back to log sink")
			analyticsSink = analytics.NewLogSink(log)
		} else {
			analyticsSink = chSink
		}
	} else {
		analyticsSink = analytics.NewLogSink(log)
	}
	pipeline := analytics.NewPipeline(log, analyticsSink)
	pipeline.Start(ctx)
	defer pipeline.Stop()

	processor := worker.NewProcessor(s, selected)
	processor.SetAnalytics(pipeline)
	workerCfg := worker.Config{
		WorkerCount:   cfg.WorkerCount,
		BatchSize:     int64(cfg.BatchSize),
		BlockTime:     cfg.StreamBlockTime,
		MinIdleTime:   cfg.MinIdleTime,
		MaxConcurrent: int64(cfg.MaxConcurrentReqs),
		MaxRetries:    int64(cfg.MaxRetries),
		ShutdownGrace: cfg.GracefulTimeout,
	}
	p := worker.New(workerCfg, eventLog, processor, log)

	log.Info().Int("worker_count", cfg.WorkerCount).Msg("worker pool starting")
	p.Run(ctx)
	log.Info().Msg("worker pool stopped")
}

// watchDeadLetterBacklog polls the dead-letter stream's length and fires a
// PagerDuty alert once it exceeds a fixed threshold, clearing the alert
// once the backlog drains back under it.
func watchDeadLetterBacklog(ctx context.Context, log *eventlog.Log, pagerDuty *observability.PagerDutyClient, logger zerolog.Logger) {
	ticker := time.NewTicker(dlqPollInterval)
	defer ticker.Stop()

	over := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := log.DeadLetterLen(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("dead-letter length check failed")
				continue
			}
			observability.DeadLetterLength.Set(float64(n))

			if n > dlqBacklogThreshold && !over {
				over = true
				if err := pagerDuty.AlertDeadLetterBacklog(n, dlqBacklogThreshold); err != nil {
					logger.Error().Err(err).Msg("trigger dead-letter backlog alert")
				}
			} else if n <= dlqBacklogThreshold && over {
				over = false
				if err := pagerDuty.AlertDeadLetterBacklogCleared(); err != nil {
					logger.Error().Err(err).Msg("resolve dead-letter backlog alert")
				}
			}
		}
	}
}
