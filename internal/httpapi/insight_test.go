package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearline/leadtriage/internal/domain"
	"github.com/nearline/leadtriage/internal/store"
)

type fakeInsightStore struct {
	insight domain.Insight
	err     error
}

func (f *fakeInsightStore) GetInsightByLead(ctx context.Context, leadID uuid.UUID) (domain.Insight, error) {
	if f.err != nil {
		return domain.Insight{}, f.err
	}
	return f.insight, nil
}

func requestWithLeadID(leadID uuid.UUID) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/leads/"+leadID.String()+"/insight", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", leadID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetInsightFound(t *testing.T) {
	leadID := uuid.New()
	fake := &fakeInsightStore{insight: domain.Insight{
		ID: uuid.New(), LeadID: leadID, Intent: domain.IntentBuy,
		Priority: domain.PriorityP0, NextAction: domain.NextActionCall,
		Confidence: 0.9, CreatedAt: time.Now().UTC(),
	}}
	h := &InsightHandler{store: fake, logger: zerolog.Nop()}

	rec := httptest.NewRecorder()
	h.GetInsight(rec, requestWithLeadID(leadID))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp insightResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, leadID, resp.LeadID)
}

func TestGetInsightNotFound(t *testing.T) {
	fake := &fakeInsightStore{err: store.ErrNotFound}
	h := &InsightHandler{store: fake, logger: zerolog.Nop()}

	rec := httptest.NewRecorder()
	h.GetInsight(rec, requestWithLeadID(uuid.New()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInsightInvalidID(t *testing.T) {
	h := &InsightHandler{store: &fakeInsightStore{}, logger: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/leads/not-a-uuid/insight", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	h.GetInsight(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
