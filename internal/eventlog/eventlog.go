// Package eventlog implements an append-only log with consumer-group
// semantics on top of Redis Streams: append, blocking group read, explicit
// ack, and claim-idle for reclaiming entries abandoned by a crashed
// consumer. It also owns the dead-letter stream used to quarantine poison
// messages once their retry budget is exhausted.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nearline/leadtriage/internal/domain"
)

// Entry is a single delivered stream entry: its id (needed for Ack/claim)
// and its raw field map (parsed by domain.ParseLeadCreatedEvent).
type Entry struct {
	ID             string
	Fields         map[string]interface{}
	DeliveryCount  int64
}

// Log wraps a Redis client bound to one stream and consumer group.
type Log struct {
	client       *redis.Client
	stream       string
	group        string
	dlqStream    string
	dlqMaxLength int64
}

// New returns a Log. EnsureGroup must be called once before reading.
func New(client *redis.Client, stream, group, dlqStream string) *Log {
	return &Log{
		client:       client,
		stream:       stream,
		group:        group,
		dlqStream:    dlqStream,
		dlqMaxLength: 10000,
	}
}

// EnsureGroup creates the consumer group (and the stream, via MKSTREAM) if
// it does not already exist. The "group already exists" condition
// (BUSYGROUP) is swallowed.
func (l *Log) EnsureGroup(ctx context.Context) error {
	err := l.client.XGroupCreateMkStream(ctx, l.stream, l.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("eventlog: create consumer group: %w", err)
	}
	return nil
}

// Append publishes a lead.created event and returns its entry id.
func (l *Log) Append(ctx context.Context, event domain.LeadCreatedEvent) (string, error) {
	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.stream,
		Values: event.ToStreamFields(),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("eventlog: append: %w", err)
	}
	return id, nil
}

// ReadNew blocks for up to block for up to count new entries addressed to
// consumer.
func (l *Log) ReadNew(ctx context.Context, consumer string, count int64, block time.Duration) ([]Entry, error) {
	streams, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    l.group,
		Consumer: consumer,
		Streams:  []string{l.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eventlog: read: %w", err)
	}
	return flatten(streams), nil
}

// ReclaimIdle claims up to count entries that have been pending longer
// than minIdle, reassigning them to consumer via XAUTOCLAIM.
func (l *Log) ReclaimIdle(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Entry, error) {
	_, messages, err := l.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   l.stream,
		Group:    l.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("eventlog: reclaim: %w", err)
	}

	entries := make([]Entry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, Entry{ID: m.ID, Fields: m.Values})
	}
	if err := l.attachDeliveryCounts(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Ack acknowledges successful processing of id, removing it from the
// consumer group's pending entries list.
func (l *Log) Ack(ctx context.Context, id string) error {
	if err := l.client.XAck(ctx, l.stream, l.group, id).Err(); err != nil {
		return fmt.Errorf("eventlog: ack %s: %w", id, err)
	}
	return nil
}

// DeadLetter copies entry, with its accumulated error, to the bounded
// dead-letter stream and acks it off the main stream so it stops
// recirculating.
func (l *Log) DeadLetter(ctx context.Context, entry Entry, lastErr error) error {
	fields := make(map[string]interface{}, len(entry.Fields)+2)
	for k, v := range entry.Fields {
		fields[k] = v
	}
	fields["retry_count"] = entry.DeliveryCount
	fields["last_error"] = lastErr.Error()

	if err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.dlqStream,
		MaxLen: l.dlqMaxLength,
		Approx: true,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("eventlog: dead-letter append: %w", err)
	}
	return l.Ack(ctx, entry.ID)
}

// DeadLetterLen returns the current length (XLEN) of the dead-letter
// stream, used to drive alerting when a backlog accumulates.
func (l *Log) DeadLetterLen(ctx context.Context) (int64, error) {
	n, err := l.client.XLen(ctx, l.dlqStream).Result()
	if err != nil {
		return 0, fmt.Errorf("eventlog: dead-letter length: %w", err)
	}
	return n, nil
}

// attachDeliveryCounts fills in each entry's DeliveryCount from XPENDING,
// used by the worker pool to decide when an entry should be dead-lettered
// instead of reclaimed again.
func (l *Log) attachDeliveryCounts(ctx context.Context, entries []Entry) error {
	for i := range entries {
		ext, err := l.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: l.stream,
			Group:  l.group,
			Start:  entries[i].ID,
			End:    entries[i].ID,
			Count:  1,
		}).Result()
		if err != nil {
			return fmt.Errorf("eventlog: pending lookup for %s: %w", entries[i].ID, err)
		}
		if len(ext) > 0 {
			entries[i].DeliveryCount = ext[0].RetryCount
		}
	}
	return nil
}

func flatten(streams []redis.XStream) []Entry {
	var entries []Entry
	for _, s := range streams {
		for _, m := range s.Messages {
			entries = append(entries, Entry{ID: m.ID, Fields: m.Values})
		}
	}
	return entries
}
