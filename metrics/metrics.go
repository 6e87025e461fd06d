package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshTotal counts refresh runs by artifact kind and outcome
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvhmux_refresh_total",
		Help: "Total number of refresh runs",
	}, []string{"kind", "outcome"})

	// RefreshDuration observes how long refresh runs take
	RefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tvhmux_refresh_duration_seconds",
		Help:    "Duration of refresh runs in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"kind"})

	// LastRefreshSuccess records the Unix time of the last successful publish per kind
	LastRefreshSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tvhmux_last_refresh_success_timestamp_seconds",
		Help: "Unix timestamp of the last successful refresh",
	}, []string{"kind"})

	// UpstreamErrors counts upstream failures by operation
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvhmux_upstream_errors_total",
		Help: "Total number of upstream backend errors",
	}, []string{"operation"})

	// PlaylistChannels tracks the channel count of the published playlist
	PlaylistChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvhmux_playlist_channels",
		Help: "Number of channels in the published playlist",
	})

	// EPGProgrammes tracks the programme count of the retained guide
	EPGProgrammes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvhmux_epg_programmes",
		Help: "Number of programmes in the retained EPG",
	})

	// EPGRetainedBytes tracks the serialized size of the retained guide
	EPGRetainedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvhmux_epg_retained_bytes",
		Help: "Serialized size of the retained EPG in bytes",
	})

	// RetentionEvictions counts evicted programmes by reason (age, size)
	RetentionEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvhmux_retention_evictions_total",
		Help: "Total number of programmes evicted from the retention store",
	}, []string{"reason"})

	// BreakerState tracks the upstream circuit breaker state
	// 0=closed, 1=open, 2=half-open
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvhmux_upstream_breaker_state",
		Help: "Current state of the upstream circuit breaker (0=closed, 1=open, 2=half-open)",
	})
)

// RecordRefreshSuccess records a successful refresh run for a kind
func RecordRefreshSuccess(kind string, unixTime float64) {
	RefreshTotal.WithLabelValues(kind, "success").Inc()
	LastRefreshSuccess.WithLabelValues(kind).Set(unixTime)
}

// RecordRefreshFailure records a failed refresh run for a kind
func RecordRefreshFailure(kind string) {
	RefreshTotal.WithLabelValues(kind, "failure").Inc()
}

// RecordUpstreamError increments the upstream error counter for an operation
func RecordUpstreamError(operation string) {
	UpstreamErrors.WithLabelValues(operation).Inc()
}

// SetBreakerState updates the circuit breaker state metric
// state should be one of: "CLOSED" (0), "OPEN" (1), "HALF-OPEN" (2)
func SetBreakerState(state string) {
	var value float64
	switch state {
	case "CLOSED":
		value = 0
	case "OPEN":
		value = 1
	case "HALF-OPEN":
		value = 2
	}
	BreakerState.Set(value)
}

// SetPlaylistStats updates the playlist gauges after a publish
func SetPlaylistStats(channels int) {
	PlaylistChannels.Set(float64(channels))
}

// SetEPGStats updates the guide gauges after a publish
func SetEPGStats(programmes, bytes int) {
	EPGProgrammes.Set(float64(programmes))
	EPGRetainedBytes.Set(float64(bytes))
}

// RecordEvictions adds to the eviction counters after a retention sweep
func RecordEvictions(age, size int) {
	if age > 0 {
		RetentionEvictions.WithLabelValues("age").Add(float64(age))
	}
	if size > 0 {
		RetentionEvictions.WithLabelValues("size").Add(float64(size))
	}
}
