package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nearline/leadtriage/internal/analytics"
	"github.com/nearline/leadtriage/internal/classifier"
	"github.com/nearline/leadtriage/internal/domain"
	"github.com/nearline/leadtriage/internal/observability"
)

// insightStore is the subset of *store.Store the processor depends on,
// narrowed so Process can be exercised against a fake in tests without a
// database.
type insightStore interface {
	InsightExists(ctx context.Context, leadID uuid.UUID, contentHash string) (bool, error)
	CreateInsight(ctx context.Context, leadID uuid.UUID, contentHash string, c domain.Classification) (bool, error)
}

// eventTracker is the subset of *analytics.Pipeline the processor depends
// on; tracking is optional, so a nil tracker is a valid no-op.
type eventTracker interface {
	Track(event analytics.TriageEvent)
}

// Processor is the pure per-message core of the worker pool: parse,
// dedupe, classify, persist. It holds no per-message state and is safe to
// invoke concurrently.
type Processor struct {
	store      insightStore
	classifier classifier.Classifier
	analytics  eventTracker
}

// NewProcessor builds a Processor backed by s and c.
func NewProcessor(s insightStore, c classifier.Classifier) *Processor {
	return &Processor{store: s, classifier: c}
}

// SetAnalytics attaches an event tracker; triaged leads are reported to it
// after a successful classification. Analytics tracking is best-effort and
// never affects the processing outcome.
func (p *Processor) SetAnalytics(tracker eventTracker) {
	p.analytics = tracker
}

// Process parses, dedupes, classifies, and persists a single raw stream
// entry. It returns nil on success (ack the entry) and a non-nil error on
// failure (leave the entry pending for reclaim).
//
// A parse failure is itself a processing failure: malformed entries are
// left pending rather than treated as fatal, so the pool can apply its
// retry-count/dead-letter policy uniformly instead of special-casing
// unparseable entries.
func (p *Processor) Process(ctx context.Context, fields map[string]interface{}) error {
	event, err := domain.ParseLeadCreatedEvent(fields)
	if err != nil {
		return fmt.Errorf("worker: parse event: %w", err)
	}

	exists, err := p.store.InsightExists(ctx, event.LeadID, event.ContentHash)
	if err != nil {
		return fmt.Errorf("worker: check existing insight: %w", err)
	}
	if exists {
		return nil
	}

	start := time.Now()
	classification, err := p.classifier.Triage(ctx, event.Note)
	latency := time.Since(start)
	observability.ClassifyDuration.WithLabelValues(p.classifier.Name()).Observe(latency.Seconds())
	if err != nil {
		return fmt.Errorf("worker: classify note: %w", err)
	}
	if !classification.Valid() {
		return fmt.Errorf("worker: classifier returned invalid classification: %+v", classification)
	}

	created, err := p.store.CreateInsight(ctx, event.LeadID, event.ContentHash, classification)
	if err != nil {
		return fmt.Errorf("worker: create insight: %w", err)
	}
	if !created {
		// Unique constraint rejected the insert: a concurrent worker won
		// the race; that is a success, not a failure.
		return nil
	}

	if p.analytics != nil {
		p.analytics.Track(analytics.TriageEvent{
			LeadID:      event.LeadID.String(),
			ContentHash: event.ContentHash,
			Adapter:     p.classifier.Name(),
			Intent:      string(classification.Intent),
			Priority:    string(classification.Priority),
			NextAction:  string(classification.NextAction),
			Confidence:  classification.Confidence,
			LatencyMs:   latency.Milliseconds(),
		})
	}
	return nil
}
