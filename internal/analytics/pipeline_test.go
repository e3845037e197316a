package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu     sync.Mutex
	events []TriageEvent
	closed bool
}

func (f *fakeSink) WriteTriageEvents(ctx context.Context, events []TriageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestPipelineFlushesOnBatchSize(t *testing.T) {
	sink := &fakeSink{}
	cfg := PipelineConfig{BufferSize: 100, BatchSize: 3, FlushInterval: time.Hour, MaxRetries: 1, RetryDelay: time.Millisecond}
	p := NewPipeline(zerolog.Nop(), sink, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	for i := 0; i < 3; i++ {
		p.Track(TriageEvent{LeadID: "lead-1"})
	}

	require.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, time.Millisecond)

	cancel()
	p.Stop()
}

func TestPipelineDrainsOnStop(t *testing.T) {
	sink := &fakeSink{}
	cfg := PipelineConfig{BufferSize: 100, BatchSize: 50, FlushInterval: time.Hour, MaxRetries: 1, RetryDelay: time.Millisecond}
	p := NewPipeline(zerolog.Nop(), sink, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	p.Track(TriageEvent{LeadID: "lead-1"})
	p.Track(TriageEvent{LeadID: "lead-2"})

	cancel()
	p.Stop()

	assert.Equal(t, 2, sink.count(), "expected both buffered events to be flushed on shutdown")
	assert.True(t, sink.closed, "expected sink to be closed on Stop")
}

func TestPipelineDropsWhenBufferFull(t *testing.T) {
	sink := &fakeSink{}
	cfg := PipelineConfig{BufferSize: 1, BatchSize: 1000, FlushInterval: time.Hour, MaxRetries: 1, RetryDelay: time.Millisecond}
	p := NewPipeline(zerolog.Nop(), sink, cfg)
	// Deliberately do not Start the pipeline, so nothing drains the channel
	// and the second Track call observes a full buffer.
	p.Track(TriageEvent{LeadID: "lead-1"})
	p.Track(TriageEvent{LeadID: "lead-2"})

	assert.EqualValues(t, 1, p.Stats().EventsDropped)
}

func TestLogSinkWriteTriageEvents(t *testing.T) {
	sink := NewLogSink(zerolog.Nop())
	require.NoError(t, sink.WriteTriageEvents(context.Background(), []TriageEvent{{LeadID: "lead-1"}}))
	require.NoError(t, sink.Close())
}
