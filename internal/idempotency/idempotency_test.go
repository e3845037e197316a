package idempotency

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, 24*time.Hour)
}

func TestLookupMiss(t *testing.T) {
	s := newTestStore(t)
	_, found, err := s.Lookup(context.Background(), "missing-key")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if found {
		t.Error("expected miss, got hit")
	}
}

func TestStoreThenLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := Record{
		StatusCode:   201,
		ResponseData: json.RawMessage(`{"id":"abc"}`),
		RequestData:  json.RawMessage(`{"note":"hi"}`),
	}
	if err := s.Store(ctx, "key1", rec); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, found, err := s.Lookup(ctx, "key1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found {
		t.Fatal("expected hit, got miss")
	}
	if got.StatusCode != 201 {
		t.Errorf("StatusCode = %d, want 201", got.StatusCode)
	}
}

func TestSameBody(t *testing.T) {
	a, err := NormalizedBody(map[string]string{"note": "hello"})
	if err != nil {
		t.Fatalf("NormalizedBody: %v", err)
	}
	b, err := NormalizedBody(map[string]string{"note": "hello"})
	if err != nil {
		t.Fatalf("NormalizedBody: %v", err)
	}
	if !SameBody(a, b) {
		t.Error("expected identical bodies to compare equal")
	}

	c, err := NormalizedBody(map[string]string{"note": "goodbye"})
	if err != nil {
		t.Fatalf("NormalizedBody: %v", err)
	}
	if SameBody(a, c) {
		t.Error("expected differing bodies to compare unequal")
	}
}
