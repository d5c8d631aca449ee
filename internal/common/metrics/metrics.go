// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_processed_total",
			Help: "Total number of conversation turns processed, by outcome",
		},
		[]string{"intent", "outcome"},
	)

	IntentDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_intent_detections_total",
			Help: "Total number of intent classifications by detected intent",
		},
		[]string{"intent"},
	)

	AccessDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_access_denials_total",
			Help: "Total number of access denials by reason",
		},
		[]string{"intent", "status"},
	)

	HandlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_handler_failures_total",
			Help: "Total number of capability handler failures by kind",
		},
		[]string{"handler", "kind"},
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_handler_duration_seconds",
			Help: "Duration of capability handler execution in seconds",
		},
		[]string{"handler"},
	)

	TurnsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assistant_turns_active",
			Help: "Number of turns currently in flight",
		},
		[]string{"transport"},
	)

	CacheOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_cache_outcomes_total",
			Help: "Cache lookup outcomes per capability",
		},
		[]string{"handler", "outcome"},
	)
)
