package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// pinger is the subset of *store.Store the health handler depends on.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves /healthz and /ready for both the intake and insight
// binaries: healthz is a pure liveness check, ready additionally verifies
// the store and Redis connections are reachable.
type HealthHandler struct {
	store       pinger
	redis       *redis.Client
	checkTimeout time.Duration
}

// NewHealthHandler builds a HealthHandler.
func NewHealthHandler(s pinger, r *redis.Client) *HealthHandler {
	return &HealthHandler{store: s, redis: r, checkTimeout: 2 * time.Second}
}

// Healthz always returns 200 once the process is serving requests.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready returns 200 only if the store and Redis are both reachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	checks := map[string]string{}
	ready := true

	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		ready = false
	} else {
		checks["store"] = "ok"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		ready = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{"ready": ready, "checks": checks})
}
