package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nearline/leadtriage/internal/eventlog"
	"github.com/nearline/leadtriage/internal/httpapi/middleware"
	"github.com/nearline/leadtriage/internal/idempotency"
	"github.com/nearline/leadtriage/internal/store"
)

// NewIntakeRouter builds the chi router for the intake service: lead
// submission and lookup, plus health/readiness/metrics.
func NewIntakeRouter(s *store.Store, log *eventlog.Log, idem *idempotency.Store, redisClient *redis.Client, maxBodyBytes int64, requestTimeout time.Duration, corsOrigins []string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	timeout := middleware.NewTimeout(logger, requestTimeout)

	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(corsOrigins))
	r.Use(chimw.Recoverer)
	r.Use(timeout.Handler)

	intake := NewIntakeHandler(s, log, idem, maxBodyBytes, logger)
	health := NewHealthHandler(s, redisClient)

	r.Get("/healthz", health.Healthz)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/leads", intake.CreateLead)
	r.Get("/leads/{id}", intake.GetLead)

	return r
}

// NewInsightRouter builds the chi router for the insight service: insight
// lookup, plus health/readiness/metrics.
func NewInsightRouter(s *store.Store, redisClient *redis.Client, requestTimeout time.Duration, corsOrigins []string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	timeout := middleware.NewTimeout(logger, requestTimeout)

	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(corsOrigins))
	r.Use(chimw.Recoverer)
	r.Use(timeout.Handler)

	insight := NewInsightHandler(s, logger)
	health := NewHealthHandler(s, redisClient)

	r.Get("/healthz", health.Healthz)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/leads/{id}/insight", insight.GetInsight)

	return r
}
