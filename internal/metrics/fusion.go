package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Fusion engine Prometheus metrics.
var (
	LanesIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lanefuse",
			Name:      "lanes_ingested_total",
			Help:      "Total number of lane runs ingested",
		},
		[]string{"lane_type", "status"},
	)

	FusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lanefuse",
			Name:      "fusions_total",
			Help:      "Total number of fusion runs computed",
		},
		[]string{"op", "status"}, // op: "fuse" / "mutate"
	)

	FusionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lanefuse",
			Name:      "fusion_duration_seconds",
			Help:      "Fusion duration in seconds, storage round-trips included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op"},
	)

	FusionFProxy = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lanefuse",
			Name:      "fusion_fproxy",
			Help:      "Structural Fproxy of persisted fusion runs",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	StoreMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lanefuse",
			Name:      "store_misses_total",
			Help:      "Lookups of expired or unknown records",
		},
		[]string{"kind"}, // "lane" / "run" / "document"
	)
)

var registerOnce sync.Once

// Register adds every lanefuse collector to the default registry. Call it
// from main; repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			LanesIngestedTotal,
			FusionsTotal,
			FusionDuration,
			FusionFProxy,
			StoreMissesTotal,
			HTTPRequestDuration,
			HTTPRequestsTotal,
			HTTPRequestsInFlight,
		)
	})
}

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
