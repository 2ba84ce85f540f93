// Package metrics exposes Prometheus collectors for the relay and wires them
// into the pipeline and poller hooks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "terarelay"

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Messages handled by the pipeline partitioned by intake source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	PipelineSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "pipeline_seconds",
			Help:      "Latency in seconds of one pipeline run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"source"},
	)

	ResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "requests_total",
			Help:      "Resolver requests partitioned by result.",
		},
		[]string{"result"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "uploads_total",
			Help:      "Uploads to Telegram partitioned by media kind and result.",
		},
		[]string{"kind", "result"},
	)

	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "polls_total",
			Help:      "getUpdates calls partitioned by result.",
		},
		[]string{"result"},
	)

	PollBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "batch_size",
			Help:      "Number of updates returned per successful getUpdates call.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	PollCursor = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cursor",
			Help:      "Highest update id consumed by the poll loop.",
		},
	)
)

// Collectors returns every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		MessagesTotal,
		PipelineSeconds,
		ResolveTotal,
		UploadsTotal,
		PollsTotal,
		PollBatchSize,
		PollCursor,
	}
}

// Register registers all collectors with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func labelOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
