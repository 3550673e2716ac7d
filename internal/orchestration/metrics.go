package orchestration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records run outcomes in a private registry, written out as a
// node-exporter textfile after the run.
type Metrics struct {
	registry *prometheus.Registry

	runDuration     prometheus.Gauge
	runSucceeded    prometheus.Gauge
	entityOutcomes  *prometheus.CounterVec
	clusterCreation *prometheus.HistogramVec
}

// NewMetrics creates the run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "testbench",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of the last run in seconds",
		}),
		runSucceeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "testbench",
			Subsystem: "run",
			Name:      "succeeded",
			Help:      "1 if the last run reached Done without failures, 0 otherwise",
		}),
		entityOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testbench",
			Subsystem: "run",
			Name:      "entity_outcomes_total",
			Help:      "Outcomes of clusters, tool installs and peerings by status and error kind",
		}, []string{"entity", "status", "kind"}),
		clusterCreation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "testbench",
			Subsystem: "cluster",
			Name:      "create_duration_seconds",
			Help:      "Duration of cluster creation in seconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8), // 5s to ~10min
		}, []string{"runtime", "result"}),
	}

	m.registry.MustRegister(m.runDuration, m.runSucceeded, m.entityOutcomes, m.clusterCreation)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Observe records a finished run.
func (m *Metrics) Observe(s *Summary) {
	m.runDuration.Set(s.Duration.Seconds())
	if s.Succeeded() {
		m.runSucceeded.Set(1)
	} else {
		m.runSucceeded.Set(0)
	}

	for _, c := range s.Clusters {
		m.entityOutcomes.WithLabelValues("cluster", c.Status, string(c.Kind)).Inc()
	}
	for _, in := range s.ToolInstalls {
		m.entityOutcomes.WithLabelValues("install", in.Status, string(in.Kind)).Inc()
	}
	for _, p := range s.Peerings {
		m.entityOutcomes.WithLabelValues("peering", p.Status, string(p.Kind)).Inc()
	}
}

func (m *Metrics) observeCreate(runtime string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.clusterCreation.WithLabelValues(runtime, result).Observe(d.Seconds())
}
