package classifier

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HealthPoller continuously monitors classifier adapter health in the
// background, so a degraded HTTP-backed adapter is observed before it
// causes worker-pool-wide latency rather than discovered by a failing
// classification.
type HealthPoller struct {
	registry *Registry
	logger   zerolog.Logger
	interval time.Duration

	mu             sync.RWMutex
	lastStatus     map[string]bool
	statusChangeCB func(adapter string, healthy bool, status HealthStatus)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthPoller creates a poller that checks all registered classifiers
// at the given interval (minimum 5 seconds).
func NewHealthPoller(registry *Registry, logger zerolog.Logger, interval time.Duration) *HealthPoller {
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	return &HealthPoller{
		registry:   registry,
		logger:     logger.With().Str("component", "classifier_health_poller").Logger(),
		interval:   interval,
		lastStatus: make(map[string]bool),
		done:       make(chan struct{}),
	}
}

// OnStatusChange registers a callback invoked on healthy<->unhealthy
// transitions.
func (hp *HealthPoller) OnStatusChange(cb func(adapter string, healthy bool, status HealthStatus)) {
	hp.statusChangeCB = cb
}

// Start begins the background polling loop. Call Stop to shut it down.
func (hp *HealthPoller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	hp.cancel = cancel

	hp.logger.Info().Dur("interval", hp.interval).Msg("starting classifier health poller")
	go hp.pollLoop(ctx)
}

// Stop gracefully shuts down the poller and waits for it to finish.
func (hp *HealthPoller) Stop() {
	if hp.cancel != nil {
		hp.cancel()
	}
	<-hp.done
	hp.logger.Info().Msg("classifier health poller stopped")
}

func (hp *HealthPoller) pollLoop(ctx context.Context) {
	defer close(hp.done)

	hp.poll(ctx)

	ticker := time.NewTicker(hp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hp.poll(ctx)
		}
	}
}

func (hp *HealthPoller) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, hp.interval/2)
	defer cancel()

	results := hp.registry.HealthCheckAll(pollCtx)

	hp.mu.Lock()
	defer hp.mu.Unlock()

	healthy, unhealthy := 0, 0
	for name, status := range results {
		wasHealthy, known := hp.lastStatus[name]
		if known && wasHealthy != status.Healthy {
			transition := "recovered"
			if !status.Healthy {
				transition = "degraded"
			}
			hp.logger.Warn().
				Str("adapter", name).
				Str("transition", transition).
				Str("error", status.Error).
				Dur("latency", status.Latency).
				Msg("classifier adapter status change")

			if hp.statusChangeCB != nil {
				hp.statusChangeCB(name, status.Healthy, status)
			}
		}
		hp.lastStatus[name] = status.Healthy

		if status.Healthy {
			healthy++
		} else {
			unhealthy++
		}
	}

	hp.logger.Debug().
		Int("healthy", healthy).
		Int("unhealthy", unhealthy).
		Int("total", len(results)).
		Msg("classifier health poll complete")
}

// IsHealthy returns whether a specific adapter was healthy at last check.
func (hp *HealthPoller) IsHealthy(name string) bool {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	healthy, ok := hp.lastStatus[name]
	return ok && healthy
}
