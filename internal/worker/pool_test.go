package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearline/leadtriage/internal/domain"
	"github.com/nearline/leadtriage/internal/eventlog"
)

// fakeLog is an in-memory streamLog used to exercise the pool's dispatch,
// ack, and dead-letter logic without a Redis server.
type fakeLog struct {
	mu       sync.Mutex
	pending  []eventlog.Entry
	served   bool
	acked    []string
	deadLet  []string
	blockDur time.Duration
}

func (f *fakeLog) ReclaimIdle(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]eventlog.Entry, error) {
	return nil, nil
}

func (f *fakeLog) ReadNew(ctx context.Context, consumer string, count int64, block time.Duration) ([]eventlog.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.served {
		// Only serve the batch once; afterwards behave like a blocking
		// read that times out with nothing new, to let the worker loop
		// notice ctx cancellation instead of spinning forever.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.blockDur):
			return nil, nil
		}
	}
	f.served = true
	return f.pending, nil
}

func (f *fakeLog) Ack(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeLog) DeadLetter(ctx context.Context, entry eventlog.Entry, lastErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadLet = append(f.deadLet, entry.ID)
	return nil
}

func entryFor(t *testing.T, note string) eventlog.Entry {
	t.Helper()
	event := domain.NewLeadCreatedEvent(uuid.New(), note)
	return eventlog.Entry{ID: event.EventID.String(), Fields: event.ToStreamFields()}
}

func TestPoolAcksOnSuccess(t *testing.T) {
	entry := entryFor(t, "buy pricing please")
	log := &fakeLog{pending: []eventlog.Entry{entry}, blockDur: 10 * time.Millisecond}
	store := &fakeStore{exists: false, created: true}
	classifier := &fakeClassifier{result: validClassification()}
	processor := NewProcessor(store, classifier)

	cfg := Config{WorkerCount: 1, BatchSize: 10, BlockTime: 10 * time.Millisecond, MaxConcurrent: 4, MaxRetries: 5}
	pool := New(cfg, nil, processor, zerolog.Nop())
	pool.log = log

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	pool.Run(ctx)

	if len(log.acked) != 1 || log.acked[0] != entry.ID {
		t.Errorf("acked = %v, want [%s]", log.acked, entry.ID)
	}
	if len(log.deadLet) != 0 {
		t.Errorf("expected no dead-lettered entries, got %v", log.deadLet)
	}
}

func TestPoolDeadLettersAfterRetryBudgetExhausted(t *testing.T) {
	entry := entryFor(t, "buy pricing please")
	entry.DeliveryCount = 10
	log := &fakeLog{pending: []eventlog.Entry{entry}, blockDur: 10 * time.Millisecond}
	store := &fakeStore{exists: false}
	classifier := &fakeClassifier{err: errors.New("adapter unavailable")}
	processor := NewProcessor(store, classifier)

	cfg := Config{WorkerCount: 1, BatchSize: 10, BlockTime: 10 * time.Millisecond, MaxConcurrent: 4, MaxRetries: 5}
	pool := New(cfg, nil, processor, zerolog.Nop())
	pool.log = log

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	pool.Run(ctx)

	if len(log.deadLet) != 1 || log.deadLet[0] != entry.ID {
		t.Errorf("deadLet = %v, want [%s]", log.deadLet, entry.ID)
	}
	if len(log.acked) != 0 {
		t.Errorf("dead-lettered entries should not additionally be acked by the pool: %v", log.acked)
	}
}

func TestPoolLeavesEntryPendingBelowRetryBudget(t *testing.T) {
	entry := entryFor(t, "buy pricing please")
	entry.DeliveryCount = 1
	log := &fakeLog{pending: []eventlog.Entry{entry}, blockDur: 10 * time.Millisecond}
	store := &fakeStore{exists: false}
	classifier := &fakeClassifier{err: errors.New("transient failure")}
	processor := NewProcessor(store, classifier)

	cfg := Config{WorkerCount: 1, BatchSize: 10, BlockTime: 10 * time.Millisecond, MaxConcurrent: 4, MaxRetries: 5}
	pool := New(cfg, nil, processor, zerolog.Nop())
	pool.log = log

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	pool.Run(ctx)

	if len(log.deadLet) != 0 {
		t.Errorf("expected no dead-lettered entries below the retry budget, got %v", log.deadLet)
	}
	if len(log.acked) != 0 {
		t.Errorf("expected no acks for a failed entry, got %v", log.acked)
	}
}
