// Package observability exposes the Prometheus metric set of the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pulse"
	subsystem = "core"
)

// Metrics groups every instrument the runtime feeds. One instance is
// shared by the registry, the fan-out worker and the telemetry reporter.
type Metrics struct {
	EventsCreated  prometheus.Counter
	AcksProcessed  prometheus.Counter
	AcksRejected   *prometheus.CounterVec
	ScoringErrors  prometheus.Counter

	NoticesDelivered prometheus.Counter
	NoticesDropped   prometheus.Counter
	FanoutMisses     prometheus.Counter

	ConnectedPeers prometheus.Gauge

	GoroutineCount  prometheus.Gauge
	ProcessMemoryMB prometheus.Gauge
	ProcessCPU      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "events_created_total",
			Help: "Events successfully persisted.",
		}),
		AcksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "acknowledgments_total",
			Help: "Acknowledgments committed to the ledger.",
		}),
		AcksRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "acknowledgments_rejected_total",
			Help: "Acknowledgments rejected before any state change.",
		}, []string{"reason"}),
		ScoringErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "scoring_errors_total",
			Help: "Aggregator failures after a committed ledger write.",
		}),
		NoticesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "notices_delivered_total",
			Help: "Notices pushed to a connected peer.",
		}),
		NoticesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "notices_dropped_total",
			Help: "Notices lost on a slow or gone peer.",
		}),
		FanoutMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "fanout_misses_total",
			Help: "Fan-out calls that found no connected recipient.",
		}),
		ConnectedPeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "connected_peers",
			Help: "Live connections currently registered.",
		}),
		GoroutineCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "goroutines",
			Help: "Goroutines currently running.",
		}),
		ProcessMemoryMB: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "process_memory_mb",
			Help: "Resident memory of the process in megabytes.",
		}),
		ProcessCPU: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "process_cpu_percent",
			Help: "CPU usage of the process in percent.",
		}),
	}
}
