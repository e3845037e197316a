package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearline/leadtriage/internal/domain"
	"github.com/nearline/leadtriage/internal/store"
)

// insightLookup is the subset of *store.Store the insight handler depends
// on.
type insightLookup interface {
	GetInsightByLead(ctx context.Context, leadID uuid.UUID) (domain.Insight, error)
}

// InsightHandler serves insight lookup.
type InsightHandler struct {
	store  insightLookup
	logger zerolog.Logger
}

// NewInsightHandler builds an InsightHandler.
func NewInsightHandler(s *store.Store, logger zerolog.Logger) *InsightHandler {
	return &InsightHandler{store: s, logger: logger.With().Str("component", "insight_handler").Logger()}
}

type insightResponse struct {
	ID          uuid.UUID         `json:"id"`
	LeadID      uuid.UUID         `json:"lead_id"`
	ContentHash string            `json:"content_hash"`
	Intent      domain.Intent     `json:"intent"`
	Priority    domain.Priority   `json:"priority"`
	NextAction  domain.NextAction `json:"next_action"`
	Confidence  float64           `json:"confidence"`
	Tags        []string          `json:"tags,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

func toInsightResponse(in domain.Insight) insightResponse {
	return insightResponse{
		ID:         in.ID,
		LeadID:     in.LeadID,
		ContentHash: in.ContentHash,
		Intent:     in.Intent,
		Priority:   in.Priority,
		NextAction: in.NextAction,
		Confidence: in.Confidence,
		Tags:       in.Tags,
		CreatedAt:  in.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
}

// GetInsight handles GET /leads/{id}/insight. A lead whose note has not yet
// been triaged (the worker pool hasn't caught up, or the event is still
// pending/dead-lettered) returns 404, the same as a lead that never
// existed — the caller cannot distinguish "not yet" from "never will" from
// this endpoint alone.
func (h *InsightHandler) GetInsight(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a UUID")
		return
	}

	insight, err := h.store.GetInsightByLead(r.Context(), leadID)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "not_found", "no insight for this lead yet")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("lead_id", leadID.String()).Msg("get insight failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not fetch insight")
		return
	}

	writeJSON(w, http.StatusOK, toInsightResponse(insight))
}
