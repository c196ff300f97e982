// Package metrics defines the Prometheus collectors for chunk loading and
// traversal. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of this module.
type Metrics struct {
	ChunksLoaded        *prometheus.CounterVec
	ChunksFailed        *prometheus.CounterVec
	LoadDuration        prometheus.Histogram
	SweepsTotal         *prometheus.CounterVec
	SweepDuration       *prometheus.HistogramVec
	AcceleratorFallback prometheus.Gauge
}

// New creates all collectors and registers them with reg. If reg is nil,
// the collectors are created but not registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunksLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sctree_chunks_loaded_total",
				Help: "Total number of chunks fetched, decoded and scattered, by buffer.",
			},
			[]string{"buffer"},
		),
		ChunksFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sctree_chunks_failed_total",
				Help: "Total number of chunks failing to load, by stage (fetch, decode, scatter).",
			},
			[]string{"stage"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sctree_load_duration_seconds",
				Help:    "Duration of chunked flat loads in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sctree_sweeps_total",
				Help: "Total number of traversal sweeps by name and executor.",
			},
			[]string{"sweep", "executor"},
		),
		SweepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sctree_sweep_duration_seconds",
				Help:    "Traversal sweep latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"sweep"},
		),
		AcceleratorFallback: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sctree_accelerator_fallback",
				Help: "1 if the last traversal fell back to the CPU executor, else 0.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.ChunksLoaded,
			m.ChunksFailed,
			m.LoadDuration,
			m.SweepsTotal,
			m.SweepDuration,
			m.AcceleratorFallback,
		)
	}
	return m
}

// ChunkLoaded counts a chunk of a buffer.
func (m *Metrics) ChunkLoaded(buffer string) {
	if m == nil {
		return
	}
	m.ChunksLoaded.WithLabelValues(buffer).Inc()
}

// ChunkFailed counts a failing chunk.
func (m *Metrics) ChunkFailed(stage string) {
	if m == nil {
		return
	}
	m.ChunksFailed.WithLabelValues(stage).Inc()
}

// ObserveLoad records the duration of a load.
func (m *Metrics) ObserveLoad(d time.Duration) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(d.Seconds())
}

// ObserveSweep counts a sweep and records its duration.
func (m *Metrics) ObserveSweep(sweep, executor string, d time.Duration) {
	if m == nil {
		return
	}
	m.SweepsTotal.WithLabelValues(sweep, executor).Inc()
	m.SweepDuration.WithLabelValues(sweep).Observe(d.Seconds())
}

// Fallback records whether traversal fell back to the CPU.
func (m *Metrics) Fallback(on bool) {
	if m == nil {
		return
	}
	if on {
		m.AcceleratorFallback.Set(1)
	} else {
		m.AcceleratorFallback.Set(0)
	}
}

// Handler returns the Prometheus scrape HTTP handler for a gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
