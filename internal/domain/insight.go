package domain

import (
	"time"

	"github.com/google/uuid"
)

// Insight is the classifier's structured opinion about one note for one
// lead. At most one insight exists per (lead_id, content_hash) pair; the
// store enforces this with a unique constraint, which is the authoritative
// arbiter of that invariant, not any in-process check.
type Insight struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"lead_id"`
	ContentHash string     `json:"content_hash"`
	Intent      Intent     `json:"intent"`
	Priority    Priority   `json:"priority"`
	NextAction  NextAction `json:"next_action"`
	Confidence  float64    `json:"confidence"`
	Tags        []string   `json:"tags,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Classification is the pure result of running a classifier over a note,
// before it is attached to a lead and content hash to become an Insight.
type Classification struct {
	Intent     Intent     `json:"intent"`
	Priority   Priority   `json:"priority"`
	NextAction NextAction `json:"next_action"`
	Confidence float64    `json:"confidence"`
	Tags       []string   `json:"tags,omitempty"`
}

// Valid reports whether the classification falls within the enum ranges
// and confidence bounds required by the data model.
func (c Classification) Valid() bool {
	if !c.Intent.Valid() || !c.Priority.Valid() || !c.NextAction.Valid() {
		return false
	}
	return c.Confidence >= 0.0 && c.Confidence <= 1.0
}
