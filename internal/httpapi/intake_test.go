package httpapi

import (
	"bytes"
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
	"github.com/nearline/leadtriage/internal/idempotency"
	"github.com/nearline/leadtriage/internal/store"
)

type fakeLeadStore struct {
	created domain.Lead
	createErr error
	getLead domain.Lead
	getErr  error
}

func (f *fakeLeadStore) CreateLead(ctx context.Context, in domain.LeadCreate) (domain.Lead, error) {
	if f.createErr != nil {
		return domain.Lead{}, f.createErr
	}
	f.created.Note = in.Note
	if f.created.ID == uuid.Nil {
		f.created.ID = uuid.New()
	}
	f.created.CreatedAt = time.Now().UTC()
	return f.created, nil
}

func (f *fakeLeadStore) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	if f.getErr != nil {
		return domain.Lead{}, f.getErr
	}
	return f.getLead, nil
}

type fakeAppender struct {
	appendErr error
	appended  []domain.LeadCreatedEvent
}

func (f *fakeAppender) Append(ctx context.Context, event domain.LeadCreatedEvent) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.appended = append(f.appended, event)
	return "1-0", nil
}

type fakeIdempotencyCache struct {
	records map[string]idempotency.Record
	storeErr error
}

func newFakeIdempotencyCache() *fakeIdempotencyCache {
	return &fakeIdempotencyCache{records: map[string]idempotency.Record{}}
}

func (f *fakeIdempotencyCache) Lookup(ctx context.Context, key string) (idempotency.Record, bool, error) {
	rec, ok := f.records[key]
	return rec, ok, nil
}

func (f *fakeIdempotencyCache) Store(ctx context.Context, key string, rec idempotency.Record) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.records[key] = rec
	return nil
}

func newTestIntakeHandler() (*IntakeHandler, *fakeLeadStore, *fakeAppender, *fakeIdempotencyCache) {
	s := &fakeLeadStore{}
	log := &fakeAppender{}
	idem := newFakeIdempotencyCache()
	h := &IntakeHandler{store: s, log: log, idempotency: idem, maxBodyBytes: 1 << 16, logger: zerolog.Nop()}
	return h, s, log, idem
}

func doCreateLead(h *IntakeHandler, body string, idemKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewBufferString(body))
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	rec := httptest.NewRecorder()
	h.CreateLead(rec, req)
	return rec
}

func TestCreateLeadSuccess(t *testing.T) {
	h, _, log, _ := newTestIntakeHandler()
	rec := doCreateLead(h, `{"note":"call me back"}`, uuid.New().String())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, log.appended, 1)

	var resp leadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "call me back", resp.Note)
}

func TestCreateLeadRequiresIdempotencyKey(t *testing.T) {
	h, _, _, _ := newTestIntakeHandler()
	rec := doCreateLead(h, `{"note":"call me back"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateLeadRejectsNonUUIDIdempotencyKey(t *testing.T) {
	h, _, _, _ := newTestIntakeHandler()
	rec := doCreateLead(h, `{"note":"call me back"}`, "not-a-uuid")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateLeadMissingNote(t *testing.T) {
	h, _, _, _ := newTestIntakeHandler()
	rec := doCreateLead(h, `{"email":"a@b.com"}`, uuid.New().String())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateLeadMalformedBody(t *testing.T) {
	h, _, _, _ := newTestIntakeHandler()
	rec := doCreateLead(h, `not json`, uuid.New().String())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateLeadIdempotentReplay(t *testing.T) {
	h, _, log, _ := newTestIntakeHandler()
	body := `{"note":"call me back"}`
	key := uuid.New().String()

	first := doCreateLead(h, body, key)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Len(t, log.appended, 1)

	second := doCreateLead(h, body, key)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	// The replay must not publish a second event or create a second lead.
	assert.Len(t, log.appended, 1)
}

func TestCreateLeadIdempotencyConflict(t *testing.T) {
	h, _, _, _ := newTestIntakeHandler()
	key := uuid.New().String()

	first := doCreateLead(h, `{"note":"call me back"}`, key)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doCreateLead(h, `{"note":"a different note"}`, key)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestGetLeadNotFound(t *testing.T) {
	h, s, _, _ := newTestIntakeHandler()
	s.getErr = store.ErrNotFound

	req := httptest.NewRequest(http.MethodGet, "/leads/"+uuid.New().String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", uuid.New().String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	h.GetLead(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLeadFound(t *testing.T) {
	h, s, _, _ := newTestIntakeHandler()
	leadID := uuid.New()
	s.getLead = domain.Lead{ID: leadID, Note: "hi", CreatedAt: time.Now().UTC()}

	req := httptest.NewRequest(http.MethodGet, "/leads/"+leadID.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", leadID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	h.GetLead(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp leadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, leadID, resp.ID)
}
