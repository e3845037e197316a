package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearline/leadtriage/internal/domain"
	"github.com/nearline/leadtriage/internal/eventlog"
	"github.com/nearline/leadtriage/internal/idempotency"
	"github.com/nearline/leadtriage/internal/observability"
	"github.com/nearline/leadtriage/internal/store"
)

// leadStore is the subset of *store.Store the intake handler depends on,
// narrowed so handler tests can substitute a fake instead of a database.
type leadStore interface {
	CreateLead(ctx context.Context, in domain.LeadCreate) (domain.Lead, error)
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// eventAppender is the subset of *eventlog.Log the intake handler depends
// on.
type eventAppender interface {
	Append(ctx context.Context, event domain.LeadCreatedEvent) (string, error)
}

// idempotencyCache is the subset of *idempotency.Store the intake handler
// depends on.
type idempotencyCache interface {
	Lookup(ctx context.Context, key string) (idempotency.Record, bool, error)
	Store(ctx context.Context, key string, rec idempotency.Record) error
}

// IntakeHandler serves lead submission and lookup.
type IntakeHandler struct {
	store        leadStore
	log          eventAppender
	idempotency  idempotencyCache
	maxBodyBytes int64
	logger       zerolog.Logger
}

// NewIntakeHandler builds an IntakeHandler.
func NewIntakeHandler(s *store.Store, log *eventlog.Log, idem *idempotency.Store, maxBodyBytes int64, logger zerolog.Logger) *IntakeHandler {
	return &IntakeHandler{
		store:        s,
		log:          log,
		idempotency:  idem,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With().Str("component", "intake_handler").Logger(),
	}
}

// leadResponse is the body returned for a successfully created or looked-up
// lead.
type leadResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Note      string    `json:"note"`
	Source    *string   `json:"source,omitempty"`
	CreatedAt string    `json:"created_at"`
}

func toLeadResponse(l domain.Lead) leadResponse {
	return leadResponse{
		ID:        l.ID,
		Email:     l.Email,
		Phone:     l.Phone,
		Name:      l.Name,
		Note:      l.Note,
		Source:    l.Source,
		CreatedAt: l.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
}

// CreateLead handles POST /leads. The Idempotency-Key header is required
// and must parse as a UUID; a repeated request with the same key and the
// same normalized body replays the cached response instead of creating a
// second lead, while the same key with a different body is rejected as a
// conflict.
func (h *IntakeHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idemKey := r.Header.Get("Idempotency-Key")
	if _, err := uuid.Parse(idemKey); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "Idempotency-Key header is required and must be a UUID")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "could not read request body")
		return
	}
	if int64(len(body)) > h.maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
		return
	}

	var in domain.LeadCreate
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "malformed JSON body")
		return
	}
	if in.Note == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "note is required")
		return
	}

	normalized, err := idempotency.NormalizedBody(in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not normalize request body")
		return
	}

	cached, found, err := h.idempotency.Lookup(ctx, idemKey)
	if err != nil {
		h.logger.Error().Err(err).Msg("idempotency lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "idempotency lookup failed")
		return
	}
	if found {
		if !idempotency.SameBody(cached.RequestData, normalized) {
			writeError(w, http.StatusConflict, "idempotency_key_conflict",
				"Idempotency-Key was already used with a different request body")
			return
		}
		observability.IdempotentReplaysTotal.Inc()
		writeJSON(w, http.StatusOK, json.RawMessage(cached.ResponseData))
		return
	}

	lead, err := h.store.CreateLead(ctx, in)
	if err != nil {
		h.logger.Error().Err(err).Msg("create lead failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not create lead")
		return
	}

	event := domain.NewLeadCreatedEvent(lead.ID, lead.Note)
	if _, err := h.log.Append(ctx, event); err != nil {
		h.logger.Error().Err(err).Str("lead_id", lead.ID.String()).Msg("publish lead.created failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not publish lead event")
		return
	}

	resp := toLeadResponse(lead)
	respBytes, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not encode response")
		return
	}

	rec := idempotency.Record{
		StatusCode:   http.StatusCreated,
		ResponseData: respBytes,
		RequestData:  normalized,
	}
	if err := h.idempotency.Store(ctx, idemKey, rec); err != nil {
		h.logger.Error().Err(err).Msg("idempotency store failed, responding without caching")
	}

	observability.LeadsCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, resp)
}

// GetLead handles GET /leads/{id}.
func (h *IntakeHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a UUID")
		return
	}

	lead, err := h.store.GetLead(r.Context(), id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "not_found", "lead not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("lead_id", id.String()).Msg("get lead failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not fetch lead")
		return
	}

	writeJSON(w, http.StatusOK, toLeadResponse(lead))
}
