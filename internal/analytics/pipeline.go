// Package analytics implements the asynchronous triage-event ingestion
// pipeline: buffered, batched, non-blocking writes so the worker pool's
// hot path never waits on an analytics sink, with retry-then-drop on
// sustained sink failure and a graceful-shutdown drain.
package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// TriageEvent records one completed classification for downstream
// analysis: which adapter classified it, what it decided, and how long it
// took.
type TriageEvent struct {
	LeadID     string    `json:"lead_id"`
	ContentHash string   `json:"content_hash"`
	Adapter    string    `json:"adapter"`
	Intent     string    `json:"intent"`
	Priority   string    `json:"priority"`
	NextAction string    `json:"next_action"`
	Confidence float64   `json:"confidence"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sink is the destination for triage events (ClickHouse, stdout, etc.).
type Sink interface {
	WriteTriageEvents(ctx context.Context, events []TriageEvent) error
	Close() error
}

// PipelineConfig controls batching and backpressure behavior.
type PipelineConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

// DefaultPipelineConfig returns production defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BufferSize:    10000,
		BatchSize:     200,
		FlushInterval: 5 * time.Second,
		MaxRetries:    3,
		RetryDelay:    500 * time.Millisecond,
	}
}

// Pipeline is the async triage-event ingestion engine. The worker pool
// calls Track from its hot path; a single background worker batches and
// flushes to Sink.
type Pipeline struct {
	logger zerolog.Logger
	config PipelineConfig
	sink   Sink

	eventCh chan TriageEvent
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	eventsReceived int64
	eventsWritten  int64
	eventsDropped  int64
	flushErrors    int64
}

// NewPipeline creates a new triage-event ingestion pipeline.
func NewPipeline(logger zerolog.Logger, sink Sink, config ...PipelineConfig) *Pipeline {
	cfg := DefaultPipelineConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	return &Pipeline{
		logger:  logger.With().Str("component", "analytics_pipeline").Logger(),
		config:  cfg,
		sink:    sink,
		eventCh: make(chan TriageEvent, cfg.BufferSize),
	}
}

// Start launches the pipeline's background worker.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run(ctx)
	p.logger.Info().
		Int("buffer_size", p.config.BufferSize).
		Int("batch_size", p.config.BatchSize).
		Dur("flush_interval", p.config.FlushInterval).
		Msg("analytics pipeline started")
}

// Stop gracefully shuts down the pipeline, flushing any buffered events.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	if p.sink != nil {
		_ = p.sink.Close()
	}
	p.logger.Info().
		Int64("received", atomic.LoadInt64(&p.eventsReceived)).
		Int64("written", atomic.LoadInt64(&p.eventsWritten)).
		Int64("dropped", atomic.LoadInt64(&p.eventsDropped)).
		Msg("analytics pipeline stopped")
}

// Track submits a triage event to the pipeline. Non-blocking: the event is
// dropped if the buffer is full rather than stalling the worker pool.
func (p *Pipeline) Track(event TriageEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	select {
	case p.eventCh <- event:
		atomic.AddInt64(&p.eventsReceived, 1)
	default:
		atomic.AddInt64(&p.eventsDropped, 1)
		p.logger.Warn().Str("lead_id", event.LeadID).Msg("triage event dropped, buffer full")
	}
}

func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]TriageEvent, 0, p.config.BatchSize)
	for {
		select {
		case <-ctx.Done():
			p.drain(batch)
			return
		case event := <-p.eventCh:
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				p.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

// drain flushes any in-flight batch plus whatever remains buffered in the
// channel, used on shutdown.
func (p *Pipeline) drain(batch []TriageEvent) {
	for {
		select {
		case event := <-p.eventCh:
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				p.flush(batch)
			}
			return
		}
	}
}

func (p *Pipeline) flush(batch []TriageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		err = p.sink.WriteTriageEvents(ctx, batch)
		if err == nil {
			atomic.AddInt64(&p.eventsWritten, int64(len(batch)))
			return
		}
		p.logger.Warn().Err(err).Int("attempt", attempt+1).Int("batch_size", len(batch)).Msg("triage event flush failed")
		if attempt < p.config.MaxRetries {
			time.Sleep(p.config.RetryDelay * time.Duration(1<<uint(attempt)))
		}
	}

	atomic.AddInt64(&p.flushErrors, 1)
	atomic.AddInt64(&p.eventsDropped, int64(len(batch)))
	p.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("triage event batch dropped after retries")
}

// Stats returns pipeline counters, useful for diagnostics.
type Stats struct {
	EventsReceived int64 `json:"events_received"`
	EventsWritten  int64 `json:"events_written"`
	EventsDropped  int64 `json:"events_dropped"`
	FlushErrors    int64 `json:"flush_errors"`
	BufferLen      int   `json:"buffer_len"`
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		EventsReceived: atomic.LoadInt64(&p.eventsReceived),
		EventsWritten:  atomic.LoadInt64(&p.eventsWritten),
		EventsDropped:  atomic.LoadInt64(&p.eventsDropped),
		FlushErrors:    atomic.LoadInt64(&p.flushErrors),
		BufferLen:      len(p.eventCh),
	}
}

// LogSink writes events as structured JSON logs; used when CLICKHOUSE_DSN
// is unset.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs events as structured JSON.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("sink", "log").Logger()}
}

func (s *LogSink) WriteTriageEvents(_ context.Context, events []TriageEvent) error {
	for _, e := range events {
		data, _ := json.Marshal(e)
		s.logger.Debug().RawJSON("event", data).Msg("triage_event")
	}
	return nil
}

func (s *LogSink) Close() error { return nil }
