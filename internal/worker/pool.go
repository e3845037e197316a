// Package worker implements the triage worker pool: a fixed set of worker
// goroutines sharing one consumer group on one stream, each running
// reclaim/read/dispatch/ack in a loop with bounded concurrent
// classification per worker.
package worker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/nearline/leadtriage/internal/eventlog"
	"github.com/nearline/leadtriage/internal/observability"
)

// Config controls the pool's batch sizes, timing, and retry policy.
type Config struct {
	WorkerCount       int
	BatchSize         int64
	BlockTime         time.Duration
	MinIdleTime       time.Duration
	MaxConcurrent     int64
	MaxRetries        int64
	ShutdownGrace     time.Duration
}

// streamLog is the subset of *eventlog.Log the pool depends on, narrowed
// so the pool's loop logic can be exercised against a fake in tests
// without a real Redis server.
type streamLog interface {
	ReclaimIdle(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]eventlog.Entry, error)
	ReadNew(ctx context.Context, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error)
	Ack(ctx context.Context, id string) error
	DeadLetter(ctx context.Context, entry eventlog.Entry, lastErr error) error
}

// Pool runs Config.WorkerCount worker goroutines against one Log using one
// Processor.
type Pool struct {
	cfg       Config
	log       streamLog
	processor *Processor
	logger    zerolog.Logger
}

// New builds a worker pool.
func New(cfg Config, log *eventlog.Log, processor *Processor, logger zerolog.Logger) *Pool {
	return &Pool{cfg: cfg, log: log, processor: processor, logger: logger.With().Str("component", "worker_pool").Logger()}
}

// Run starts cfg.WorkerCount workers and blocks until ctx is cancelled,
// then waits for in-flight dispatches to complete before returning. Each
// worker is consumer "worker-<n>" within the shared group.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.WorkerCount; i++ {
		consumerName := workerConsumerName(i)
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			p.runWorker(ctx, name)
		}(consumerName)
	}
	wg.Wait()
}

func workerConsumerName(i int) string {
	return "worker-" + strconv.Itoa(i)
}

func (p *Pool) runWorker(ctx context.Context, consumer string) {
	log := p.logger.With().Str("consumer", consumer).Logger()
	sem := semaphore.NewWeighted(p.cfg.MaxConcurrent)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received, finishing in-flight work")
			p.drain(sem)
			return
		default:
		}

		// Reclaim phase: entries abandoned by a crashed/slow consumer.
		reclaimed, err := p.log.ReclaimIdle(ctx, consumer, p.cfg.MinIdleTime, p.cfg.BatchSize)
		if err != nil {
			log.Warn().Err(err).Msg("reclaim phase failed")
		} else {
			p.dispatchBatch(ctx, sem, consumer, reclaimed, &log)
		}

		select {
		case <-ctx.Done():
			p.drain(sem)
			return
		default:
		}

		// Read phase: new entries addressed to this consumer.
		entries, err := p.log.ReadNew(ctx, consumer, p.cfg.BatchSize, p.cfg.BlockTime)
		if err != nil {
			log.Warn().Err(err).Msg("read phase failed")
			time.Sleep(time.Second)
			continue
		}
		p.dispatchBatch(ctx, sem, consumer, entries, &log)
	}
}

// drain waits for any classification goroutines still holding the
// semaphore to finish, by acquiring every slot: once acquired, nothing is
// still running.
func (p *Pool) drain(sem *semaphore.Weighted) {
	timeout := p.cfg.ShutdownGrace
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	grace, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = sem.Acquire(grace, p.cfg.MaxConcurrent)
}

func (p *Pool) dispatchBatch(ctx context.Context, sem *semaphore.Weighted, consumer string, entries []eventlog.Entry, log *zerolog.Logger) {
	if len(entries) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, entry := range entries {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Str("entry_id", entry.ID).Msg("semaphore acquire interrupted, leaving entry pending")
			continue
		}
		wg.Add(1)
		go func(e eventlog.Entry) {
			defer wg.Done()
			defer sem.Release(1)
			p.handleEntry(ctx, e, log)
		}(entry)
	}
	wg.Wait()
}

func (p *Pool) handleEntry(ctx context.Context, entry eventlog.Entry, log *zerolog.Logger) {
	err := p.processor.Process(ctx, entry.Fields)
	if err == nil {
		observability.EventsProcessedTotal.WithLabelValues("success").Inc()
		if ackErr := p.log.Ack(ctx, entry.ID); ackErr != nil {
			log.Error().Err(ackErr).Str("entry_id", entry.ID).Msg("ack failed after successful processing")
		}
		return
	}

	if entry.DeliveryCount >= p.cfg.MaxRetries {
		observability.EventsProcessedTotal.WithLabelValues("dead_lettered").Inc()
		log.Error().Err(err).Str("entry_id", entry.ID).Int64("retry_count", entry.DeliveryCount).
			Msg("retry budget exhausted, routing to dead-letter stream")
		if dlqErr := p.log.DeadLetter(ctx, entry, err); dlqErr != nil {
			log.Error().Err(dlqErr).Str("entry_id", entry.ID).Msg("dead-letter append failed, entry remains pending")
		}
		return
	}

	observability.EventsProcessedTotal.WithLabelValues("retry").Inc()
	log.Warn().Err(err).Str("entry_id", entry.ID).Msg("processing failed, entry left pending for reclaim")
}
