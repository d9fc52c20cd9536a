package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ClustersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clusterpool_clusters_total",
			Help: "Total number of clusters by host and status",
		},
		[]string{"host_id", "status"},
	)

	CreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clusterpool_create_duration_seconds",
			Help:    "Time taken to create a cluster in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clusterpool_apply_duration_seconds",
			Help:    "Time taken to claim a cluster via apply in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReleaseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clusterpool_release_duration_seconds",
			Help:    "Time taken to mark a cluster released in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeleteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clusterpool_delete_duration_seconds",
			Help:    "Time taken to tear down a cluster in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clusterpool_recycle_duration_seconds",
			Help:    "Time taken for a background recycle (delete+create) in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LeaseConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpool_lease_conflicts_total",
			Help: "Total number of apply calls that found no idle cluster",
		},
	)

	CapacityExceededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpool_capacity_exceeded_total",
			Help: "Total number of create calls rejected for lack of host capacity",
		},
	)

	RecycleDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clusterpool_recycle_dropped_total",
			Help: "Total number of recycle jobs dropped because the worker pool was saturated",
		},
	)
)

func init() {
	prometheus.MustRegister(ClustersTotal)
	prometheus.MustRegister(CreateDuration)
	prometheus.MustRegister(ApplyDuration)
	prometheus.MustRegister(ReleaseDuration)
	prometheus.MustRegister(DeleteDuration)
	prometheus.MustRegister(RecycleDuration)
	prometheus.MustRegister(LeaseConflictsTotal)
	prometheus.MustRegister(CapacityExceededTotal)
	prometheus.MustRegister(RecycleDroppedTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
