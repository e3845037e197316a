package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a captured prospect submission with a free-text note. Created
// exactly once by the intake service; never mutated or deleted afterward.
type Lead struct {
	ID        uuid.UUID `json:"id"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Note      string    `json:"note"`
	Source    *string   `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadCreate is the inbound payload for POST /leads.
type LeadCreate struct {
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Name   *string `json:"name,omitempty"`
	Note   string  `json:"note"`
	Source *string `json:"source,omitempty"`
}
