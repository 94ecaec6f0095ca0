package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus instruments for the application. Each
// instance owns its registry so tests never trip duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Simulation metrics
	StepDuration prometheus.Histogram
	StepsTotal   prometheus.Counter
	NodesSpawned prometheus.Counter
	NodesRemoved prometheus.Counter
	Expansions   *prometheus.CounterVec

	// Generator client metrics
	GeneratorRequests *prometheus.CounterVec

	// Command and query bus metrics
	BusOperations *prometheus.CounterVec
	BusDuration   *prometheus.HistogramVec
}

// NewMetrics creates a metrics collector with the given namespace
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Steps run at tens of milliseconds, so the default buckets would
	// collapse everything into the first two.
	stepDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_step_duration_seconds",
			Help:      "Physics step duration in seconds",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	stepsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_steps_total",
			Help:      "Total number of physics steps executed",
		},
	)

	nodesSpawned := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_spawned_total",
			Help:      "Total number of nodes spawned",
		},
	)

	nodesRemoved := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_removed_total",
			Help:      "Total number of nodes removed by expansion rollback",
		},
	)

	expansions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expansions_total",
			Help:      "Total number of expansion lifecycle transitions",
		},
		[]string{"outcome"},
	)

	generatorRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_requests_total",
			Help:      "Total number of generator client requests",
		},
		[]string{"kind", "outcome"},
	)

	busOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_operations_total",
			Help:      "Total number of command and query bus operations",
		},
		[]string{"metric", "operation"},
	)

	busDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_operation_duration_seconds",
			Help:      "Command and query bus operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"metric", "operation"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		stepDuration,
		stepsTotal,
		nodesSpawned,
		nodesRemoved,
		expansions,
		generatorRequests,
		busOperations,
		busDuration,
	)

	return &Metrics{
		registry:          registry,
		HTTPRequests:      httpRequests,
		HTTPDuration:      httpDuration,
		StepDuration:      stepDuration,
		StepsTotal:        stepsTotal,
		NodesSpawned:      nodesSpawned,
		NodesRemoved:      nodesRemoved,
		Expansions:        expansions,
		GeneratorRequests: generatorRequests,
		BusOperations:     busOperations,
		BusDuration:       busDuration,
	}
}

// Registry returns the Prometheus registry for this collector
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving this collector's registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterActiveSessions registers a gauge backed by the given function
func (m *Metrics) RegisterActiveSessions(f func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Number of live simulation sessions",
		},
		f,
	))
}

// RegisterStreamClients registers a gauge backed by the given function
func (m *Metrics) RegisterStreamClients(f func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "stream_clients",
			Help: "Number of connected frame stream clients",
		},
		f,
	))
}

// ObserveStep records one physics step
func (m *Metrics) ObserveStep(d time.Duration) {
	m.StepDuration.Observe(d.Seconds())
	m.StepsTotal.Inc()
}

// ObserveHTTP records one completed HTTP request
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordGeneratorRequest records a generator client call outcome
func (m *Metrics) RecordGeneratorRequest(kind, outcome string) {
	m.GeneratorRequests.WithLabelValues(kind, outcome).Inc()
}

// Increment bumps a bus operation counter
func (m *Metrics) Increment(metric, operation string) {
	m.BusOperations.WithLabelValues(metric, operation).Inc()
}

// StartTimer starts a timer feeding the bus duration histogram
func (m *Metrics) StartTimer(metric, operation string) *OperationTimer {
	return &OperationTimer{
		observer: m.BusDuration.WithLabelValues(metric, operation),
		start:    time.Now(),
	}
}

// OperationTimer measures one bus operation
type OperationTimer struct {
	observer prometheus.Observer
	start    time.Time
}

// Stop records the elapsed time
func (t *OperationTimer) Stop() {
	t.observer.Observe(time.Since(t.start).Seconds())
}
