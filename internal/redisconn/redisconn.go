// Package redisconn constructs the shared Redis client used by both the
// idempotency cache and the event log. The two concerns are logically
// distinct namespaces (idempotency:* keys vs. stream entries) but share
// one connection.
package redisconn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New parses redisURL and returns a ready *redis.Client.
func New(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redisconn: invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// Ping checks connectivity with a short timeout, used by each binary at
// startup.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
