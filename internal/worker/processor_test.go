package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nearline/leadtriage/internal/classifier"
	"github.com/nearline/leadtriage/internal/domain"
)

type fakeStore struct {
	exists       bool
	existsErr    error
	created      bool
	createErr    error
	createCalled bool
}

func (f *fakeStore) InsightExists(ctx context.Context, leadID uuid.UUID, contentHash string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) CreateInsight(ctx context.Context, leadID uuid.UUID, contentHash string, c domain.Classification) (bool, error) {
	f.createCalled = true
	return f.created, f.createErr
}

type fakeClassifier struct {
	result domain.Classification
	err    error
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Triage(ctx context.Context, note string) (domain.Classification, error) {
	return f.result, f.err
}

func (f *fakeClassifier) HealthCheck(ctx context.Context) classifier.HealthStatus {
	return classifier.HealthStatus{Healthy: true}
}

func validClassification() domain.Classification {
	return domain.Classification{
		Intent:     domain.IntentBuy,
		Priority:   domain.PriorityP1,
		NextAction: domain.NextActionEmail,
		Confidence: 0.7,
		Tags:       []string{"enterprise"},
	}
}

func sampleFields(t *testing.T) map[string]interface{} {
	t.Helper()
	event := domain.NewLeadCreatedEvent(uuid.New(), "buy pricing please")
	return event.ToStreamFields()
}

func TestProcessSkipsWhenInsightExists(t *testing.T) {
	store := &fakeStore{exists: true}
	classifier := &fakeClassifier{result: validClassification()}
	p := NewProcessor(store, classifier)

	if err := p.Process(context.Background(), sampleFields(t)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if store.createCalled {
		t.Error("CreateInsight should not be called when an insight already exists")
	}
}

func TestProcessSuccess(t *testing.T) {
	store := &fakeStore{exists: false, created: true}
	classifier := &fakeClassifier{result: validClassification()}
	p := NewProcessor(store, classifier)

	if err := p.Process(context.Background(), sampleFields(t)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !store.createCalled {
		t.Error("expected CreateInsight to be called")
	}
}

func TestProcessTreatsConstraintRaceAsSuccess(t *testing.T) {
	store := &fakeStore{exists: false, created: false}
	classifier := &fakeClassifier{result: validClassification()}
	p := NewProcessor(store, classifier)

	if err := p.Process(context.Background(), sampleFields(t)); err != nil {
		t.Fatalf("Process should treat a unique-constraint rejection as success, got: %v", err)
	}
}

func TestProcessReturnsErrorOnClassifierFailure(t *testing.T) {
	store := &fakeStore{exists: false}
	classifier := &fakeClassifier{err: errors.New("boom")}
	p := NewProcessor(store, classifier)

	if err := p.Process(context.Background(), sampleFields(t)); err == nil {
		t.Fatal("expected an error from classifier failure")
	}
}

func TestProcessRejectsInvalidClassification(t *testing.T) {
	store := &fakeStore{exists: false}
	classifier := &fakeClassifier{result: domain.Classification{Intent: "bogus"}}
	p := NewProcessor(store, classifier)

	if err := p.Process(context.Background(), sampleFields(t)); err == nil {
		t.Fatal("expected an error for an invalid classification")
	}
}

func TestProcessReturnsErrorOnMalformedEvent(t *testing.T) {
	store := &fakeStore{}
	classifier := &fakeClassifier{result: validClassification()}
	p := NewProcessor(store, classifier)

	if err := p.Process(context.Background(), map[string]interface{}{"type": "lead.created"}); err == nil {
		t.Fatal("expected an error for a malformed event")
	}
}
