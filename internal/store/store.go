// Package store provides the relational persistence layer for leads and
// insights, backed by PostgreSQL via pgx. The unique constraint on
// (lead_id, content_hash) is the sole authoritative arbiter of the
// at-most-one-insight invariant; callers may pre-check for an existing
// insight as an optimization, but correctness never depends on it.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nearline/leadtriage/internal/domain"
)

// ErrNotFound is returned when a lookup by id finds no row.
var ErrNotFound = errors.New("store: not found")

// uniqueViolationCode is the PostgreSQL SQLSTATE for a unique constraint
// violation (23505). pgx surfaces this on *pgconn.PgError.
const uniqueViolationCode = "23505"

// Store wraps a pgx connection pool and exposes the operations the intake,
// insight, and worker binaries need.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and returns a ready Store. Callers should
// call Close when done.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateLead inserts a new lead row and returns the persisted record with
// its server-generated id and timestamp.
func (s *Store) CreateLead(ctx context.Context, in domain.LeadCreate) (domain.Lead, error) {
	lead := domain.Lead{
		ID:     uuid.New(),
		Email:  in.Email,
		Phone:  in.Phone,
		Name:   in.Name,
		Note:   in.Note,
		Source: in.Source,
	}

	const q = `
		INSERT INTO leads (id, email, phone, name, note, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := s.pool.QueryRow(ctx, q, lead.ID, lead.Email, lead.Phone, lead.Name, lead.Note, lead.Source).
		Scan(&lead.CreatedAt)
	if err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// GetLead returns the lead with the given id, or ErrNotFound.
func (s *Store) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	const q = `
		SELECT id, email, phone, name, note, source, created_at
		FROM leads WHERE id = $1`

	var lead domain.Lead
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&lead.ID, &lead.Email, &lead.Phone, &lead.Name, &lead.Note, &lead.Source, &lead.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// InsightExists reports whether an insight already exists for the given
// (lead_id, content_hash) pair. This is a pre-check optimization; it is
// never the sole guarantor of uniqueness.
func (s *Store) InsightExists(ctx context.Context, leadID uuid.UUID, contentHash string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM insights WHERE lead_id = $1 AND content_hash = $2)`
	var exists bool
	if err := s.pool.QueryRow(ctx, q, leadID, contentHash).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateInsight inserts a new insight row. If the unique constraint on
// (lead_id, content_hash) rejects the insert, it returns (false, nil) so
// the caller can treat the race as a successful no-op rather than an
// error.
func (s *Store) CreateInsight(ctx context.Context, leadID uuid.UUID, contentHash string, c domain.Classification) (bool, error) {
	id := uuid.New()
	const q = `
		INSERT INTO insights (id, lead_id, content_hash, intent, priority, next_action, confidence, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, q, id, leadID, contentHash, string(c.Intent), string(c.Priority), string(c.NextAction), c.Confidence, c.Tags)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetInsightByLead returns the insight for a lead, or ErrNotFound. There is
// at most one per content hash; the typical case is exactly one per lead.
func (s *Store) GetInsightByLead(ctx context.Context, leadID uuid.UUID) (domain.Insight, error) {
	const q = `
		SELECT id, lead_id, content_hash, intent, priority, next_action, confidence, tags, created_at
		FROM insights WHERE lead_id = $1
		ORDER BY created_at ASC
		LIMIT 1`

	var insight domain.Insight
	var intent, priority, nextAction string
	err := s.pool.QueryRow(ctx, q, leadID).Scan(
		&insight.ID, &insight.LeadID, &insight.ContentHash, &intent, &priority, &nextAction,
		&insight.Confidence, &insight.Tags, &insight.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Insight{}, ErrNotFound
	}
	if err != nil {
		return domain.Insight{}, err
	}
	insight.Intent = domain.Intent(intent)
	insight.Priority = domain.Priority(priority)
	insight.NextAction = domain.NextAction(nextAction)
	return insight, nil
}
