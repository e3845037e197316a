// Package idempotency implements the HTTP-level idempotency-key cache: a
// Redis key-value record of {status_code, response_data, request_data}
// keyed by a client-supplied token, with a 24-hour TTL and exact-match
// conflict detection against the normalized request body.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// Record is the cached value for a given idempotency key.
type Record struct {
	StatusCode  int             `json:"status_code"`
	ResponseData json.RawMessage `json:"response_data"`
	RequestData json.RawMessage `json:"request_data"`
}

// Store wraps a Redis client scoped to the idempotency:* namespace.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a Store using client, caching records for ttl (24 hours in
// production).
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Lookup returns the cached record for key, if any.
func (s *Store) Lookup(ctx context.Context, key string) (Record, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("idempotency: lookup %s: %w", key, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("idempotency: decode cached record for %s: %w", key, err)
	}
	return rec, true, nil
}

// Store caches rec under key with the configured TTL.
func (s *Store) Store(ctx context.Context, key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("idempotency: encode record for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: store %s: %w", key, err)
	}
	return nil
}

// NormalizedBody renders v (a domain.LeadCreate-shaped value, or anything
// comparable) as its canonical JSON form for conflict comparison: keys in
// sorted order (the round trip through a generic map makes encoding/json
// sort them), no whitespace, top-level fields holding an empty string
// dropped so they compare the same as absent ones, and no trimming of
// string fields — two requests that differ only in whitespace inside
// `note` are treated as different bodies; note contents are not
// normalized beyond this.
func NormalizedBody(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("idempotency: normalize body: %w", err)
	}
	var compact interface{}
	if err := json.Unmarshal(data, &compact); err != nil {
		return nil, fmt.Errorf("idempotency: normalize body: %w", err)
	}
	if m, ok := compact.(map[string]interface{}); ok {
		for k, val := range m {
			if s, isStr := val.(string); isStr && s == "" {
				delete(m, k)
			}
		}
	}
	return json.Marshal(compact)
}

// SameBody reports whether two normalized bodies are byte-identical.
func SameBody(a, b json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
