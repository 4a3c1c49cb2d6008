package watch

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homewatch_events_total",
			Help: "Camera events processed",
		},
		[]string{"camera_id", "event_type"},
	)
	detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homewatch_detections_total",
			Help: "Objects detected in event snapshots",
		},
		[]string{"camera_id", "class"},
	)
	sightingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homewatch_person_sightings_total",
			Help: "Recognized persons per camera",
		},
		[]string{"camera_id", "person"},
	)
	pollFailure = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "homewatch_poll_failure_total",
			Help: "Failed event poll ticks",
		},
	)
	eventFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homewatch_event_failure_total",
			Help: "Events that failed snapshot download or inference",
		},
		[]string{"camera_id", "stage"},
	)
	lastPollSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "homewatch_last_poll_success_timestamp_seconds",
			Help: "Last successful event poll (epoch seconds)",
		},
	)
)

// MetricsCollectors returns collectors for the watch pipeline.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		eventsTotal,
		detectionsTotal,
		sightingsTotal,
		pollFailure,
		eventFailure,
		lastPollSuccess,
	}
}
