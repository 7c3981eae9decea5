package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "daybook"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// EntryOperations counts journal operations by name and outcome
	// (ok, not_found, invalid, unauthorized, error).
	EntryOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "entry_operations_total", Help: "Number of journal entry operations by outcome."},
		[]string{"op", "result"},
	)
	InsightsCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "insights_cache_total", Help: "Insights cache lookups by result (hit, miss, error)."},
		[]string{"result"},
	)
	Exports = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "exports_total", Help: "Journal exports by result."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(EntryOperations)
	reg.MustRegister(InsightsCache)
	reg.MustRegister(Exports)
}
