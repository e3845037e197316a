package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeadCreatedEventType is the only event type currently published to the
// stream. It is carried as a field, not implied by the stream name, so the
// stream can grow new event types without a format break.
const LeadCreatedEventType = "lead.created"

// LeadCreatedEvent is the durable stream entry published once a lead is
// committed. All fields are strings on the wire since Redis Streams field
// values are always strings; consumers parse them back into typed values.
type LeadCreatedEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	Type        string    `json:"type"`
	LeadID      uuid.UUID `json:"lead_id"`
	Note        string    `json:"note"`
	ContentHash string    `json:"content_hash"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ContentHash returns the lowercase hex SHA-256 digest of note's UTF-8
// bytes — the note-fingerprint used for deduplication across every layer
// of the pipeline.
func ContentHash(note string) string {
	sum := sha256.Sum256([]byte(note))
	return hex.EncodeToString(sum[:])
}

// NewLeadCreatedEvent builds the event published after a lead commits.
func NewLeadCreatedEvent(leadID uuid.UUID, note string) LeadCreatedEvent {
	return LeadCreatedEvent{
		EventID:     uuid.New(),
		Type:        LeadCreatedEventType,
		LeadID:      leadID,
		Note:        note,
		ContentHash: ContentHash(note),
		OccurredAt:  time.Now().UTC(),
	}
}

// ToStreamFields renders the event as the string-keyed, string-valued map
// that Redis Streams' XADD expects.
func (e LeadCreatedEvent) ToStreamFields() map[string]interface{} {
	return map[string]interface{}{
		"event_id":     e.EventID.String(),
		"type":         e.Type,
		"lead_id":      e.LeadID.String(),
		"note":         e.Note,
		"content_hash": e.ContentHash,
		"occurred_at":  e.OccurredAt.Format(time.RFC3339Nano),
	}
}

// ParseLeadCreatedEvent parses the raw string-valued field map returned by
// XRANGE/XREADGROUP/XAUTOCLAIM back into a LeadCreatedEvent. A malformed
// entry is a worker-level failure: it is never acked on this path, only
// on the dead-letter path once the retry budget is exhausted.
func ParseLeadCreatedEvent(fields map[string]interface{}) (LeadCreatedEvent, error) {
	get := func(key string) (string, error) {
		v, ok := fields[key]
		if !ok {
			return "", fmt.Errorf("domain: stream entry missing field %q", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("domain: stream entry field %q is not a string", key)
		}
		return s, nil
	}

	eventIDStr, err := get("event_id")
	if err != nil {
		return LeadCreatedEvent{}, err
	}
	eventID, err := uuid.Parse(eventIDStr)
	if err != nil {
		return LeadCreatedEvent{}, fmt.Errorf("domain: invalid event_id: %w", err)
	}

	typ, err := get("type")
	if err != nil {
		return LeadCreatedEvent{}, err
	}
	if typ != LeadCreatedEventType {
		return LeadCreatedEvent{}, fmt.Errorf("domain: unexpected event type %q", typ)
	}

	leadIDStr, err := get("lead_id")
	if err != nil {
		return LeadCreatedEvent{}, err
	}
	leadID, err := uuid.Parse(leadIDStr)
	if err != nil {
		return LeadCreatedEvent{}, fmt.Errorf("domain: invalid lead_id: %w", err)
	}

	note, err := get("note")
	if err != nil {
		return LeadCreatedEvent{}, err
	}

	contentHash, err := get("content_hash")
	if err != nil {
		return LeadCreatedEvent{}, err
	}
	if contentHash != ContentHash(note) {
		return LeadCreatedEvent{}, fmt.Errorf("domain: content_hash does not match note")
	}

	occurredAtStr, err := get("occurred_at")
	if err != nil {
		return LeadCreatedEvent{}, err
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, occurredAtStr)
	if err != nil {
		return LeadCreatedEvent{}, fmt.Errorf("domain: invalid occurred_at: %w", err)
	}

	return LeadCreatedEvent{
		EventID:     eventID,
		Type:        typ,
		LeadID:      leadID,
		Note:        note,
		ContentHash: contentHash,
		OccurredAt:  occurredAt,
	}, nil
}
