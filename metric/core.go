package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "widgetflow"

// Metrics holds the pipeline graph metrics. All Record methods are safe on a
// nil receiver so components can run without metrics.
type Metrics struct {
	WiringOperations   *prometheus.CounterVec
	MergeNodes         *prometheus.CounterVec
	MergeConnections   *prometheus.CounterVec
	ValidationRuns     *prometheus.CounterVec
	ValidationProblems prometheus.Histogram
	StoreOperations    *prometheus.CounterVec
	StoreDuration      *prometheus.HistogramVec
	EventsPublished    *prometheus.CounterVec
	EventSubscribers   prometheus.Gauge
	EventsDropped      prometheus.Counter
	NATSConnected      prometheus.Gauge
}

// NewMetrics creates unregistered metric collectors
func NewMetrics() *Metrics {
	return &Metrics{
		WiringOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wiring",
				Name:      "operations_total",
				Help:      "Interactive wiring operations by outcome",
			},
			[]string{"operation", "outcome"},
		),

		MergeNodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "merge",
				Name:      "nodes_total",
				Help:      "Nodes handled by pipeline merges (added or reused)",
			},
			[]string{"result"},
		),

		MergeConnections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "merge",
				Name:      "connections_total",
				Help:      "Connections handled by pipeline merges (added or skipped)",
			},
			[]string{"result"},
		),

		ValidationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "validation",
				Name:      "runs_total",
				Help:      "Structural validation runs by result",
			},
			[]string{"result"},
		),

		ValidationProblems: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "validation",
				Name:      "problems",
				Help:      "Problems reported per validation run",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),

		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Persistence gateway operations by result",
			},
			[]string{"operation", "result"},
		),

		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "duration_seconds",
				Help:      "Persistence gateway operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Pipeline change events published",
			},
			[]string{"type", "result"},
		),

		EventSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "subscribers",
				Help:      "Connected event stream subscribers",
			},
		),

		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Events discarded because a stream subscriber fell behind",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.WiringOperations,
		m.MergeNodes,
		m.MergeConnections,
		m.ValidationRuns,
		m.ValidationProblems,
		m.StoreOperations,
		m.StoreDuration,
		m.EventsPublished,
		m.EventSubscribers,
		m.EventsDropped,
		m.NATSConnected,
	}
}

// RecordWiring counts one wiring operation
func (m *Metrics) RecordWiring(operation, outcome string) {
	if m == nil {
		return
	}
	m.WiringOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordMerge counts the nodes and connections handled by one merge
func (m *Metrics) RecordMerge(nodesAdded, nodesReused, connectionsAdded, connectionsSkipped int) {
	if m == nil {
		return
	}
	m.MergeNodes.WithLabelValues("added").Add(float64(nodesAdded))
	m.MergeNodes.WithLabelValues("reused").Add(float64(nodesReused))
	m.MergeConnections.WithLabelValues("added").Add(float64(connectionsAdded))
	m.MergeConnections.WithLabelValues("skipped").Add(float64(connectionsSkipped))
}

// RecordValidation counts one validation run and its problem count
func (m *Metrics) RecordValidation(problems int) {
	if m == nil {
		return
	}
	result := "valid"
	if problems > 0 {
		result = "invalid"
	}
	m.ValidationRuns.WithLabelValues(result).Inc()
	m.ValidationProblems.Observe(float64(problems))
}

// RecordStoreOperation counts one gateway call and its duration
func (m *Metrics) RecordStoreOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(operation, result).Inc()
	m.StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEventPublished counts one published event
func (m *Metrics) RecordEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, result).Inc()
}

// AddEventSubscribers moves the subscriber gauge by delta
func (m *Metrics) AddEventSubscribers(delta int) {
	if m == nil {
		return
	}
	m.EventSubscribers.Add(float64(delta))
}

// RecordEventDropped counts one event lost to a slow subscriber
func (m *Metrics) RecordEventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// RecordNATSStatus updates the NATS connection gauge
func (m *Metrics) RecordNATSStatus(connected bool) {
	if m == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}
