package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on the default Prometheus registry; the intake and
// insight routers each expose that registry via promhttp.Handler(). The
// worker binary serves no HTTP endpoint, so the metrics it updates are not
// exposed by any listener.
var (
	LeadsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadtriage_leads_created_total",
		Help: "Total leads successfully created via the intake API.",
	})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadtriage_idempotent_replays_total",
		Help: "Total requests served from the idempotency cache instead of creating a new lead.",
	})

	EventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadtriage_events_processed_total",
		Help: "Total stream entries the worker pool finished processing, by outcome.",
	}, []string{"outcome"})

	DeadLetterLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadtriage_dead_letter_length",
		Help: "Length of the dead-letter stream at the last poll.",
	})

	ClassifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadtriage_classify_duration_seconds",
		Help:    "Time spent in a classifier adapter's Triage call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"adapter"})
)
