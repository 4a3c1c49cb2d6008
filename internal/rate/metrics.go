package rate

import "github.com/prometheus/client_golang/prometheus"

var (
	lastStatusGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homewatch_rate_last_status",
			Help: "Last HTTP status observed per provider",
		},
		[]string{"provider"},
	)
	retryAfterGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homewatch_rate_retry_after_seconds",
			Help: "Most recent provider-ordered back-off in seconds",
		},
		[]string{"provider"},
	)
	blockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homewatch_rate_blocked_total",
			Help: "Requests blocked by the rate guard",
		},
		[]string{"provider", "reason"},
	)
)

// MetricsCollectors returns collectors for the rate guard.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		lastStatusGauge,
		retryAfterGauge,
		blockedTotal,
	}
}
