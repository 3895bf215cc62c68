// Package metrics exposes Prometheus instrumentation for SHEM.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shem"

// Prediction outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient_data"
	OutcomeRejected     = "rejected"
)

// Metrics holds the collectors registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	malfunctions    *prometheus.CounterVec
	readings        prometheus.Counter
	persistFailures prometheus.Counter
	predictions     *prometheus.CounterVec
	historyPeriods  prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Simulation cycles run, by cost strategy.",
		}, []string{"strategy"}),
		malfunctions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_malfunctions_total",
			Help:      "Sensor samples skipped because of a malfunction.",
		}, []string{"category"}),
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Readings appended to the store.",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Readings that could not be appended.",
		}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests, by outcome.",
		}, []string{"outcome"}),
		historyPeriods: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_periods",
			Help:      "Distinct periods in the aggregated history.",
		}),
	}

	m.registry.MustRegister(
		m.cycles,
		m.malfunctions,
		m.readings,
		m.persistFailures,
		m.predictions,
		m.historyPeriods,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CycleCompleted counts a cycle for strategy.
func (m *Metrics) CycleCompleted(strategy string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(strategy).Inc()
}

// SensorMalfunction counts a skipped category.
func (m *Metrics) SensorMalfunction(category string) {
	if m == nil {
		return
	}
	m.malfunctions.WithLabelValues(category).Inc()
}

// ReadingsPersisted adds n appended readings.
func (m *Metrics) ReadingsPersisted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.readings.Add(float64(n))
}

// PersistFailed counts a failed append.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// Prediction counts a prediction request with outcome.
func (m *Metrics) Prediction(outcome string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

// SetHistoryPeriods records the current history length.
func (m *Metrics) SetHistoryPeriods(n int) {
	if m == nil {
		return
	}
	m.historyPeriods.Set(float64(n))
}
