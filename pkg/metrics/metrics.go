// Package metrics exposes the pipeline counters on a dedicated prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder interface {
	ObserveFrame(status string, elapsed time.Duration)
	ObserveFailure(reason string, elapsed time.Duration)
}

type Metrics struct {
	registry        *prometheus.Registry
	frames          prometheus.Counter
	classifications *prometheus.CounterVec
	failures        *prometheus.CounterVec
	duration        prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "drowsiness_frames_total",
			Help: "Frames submitted to the detection pipeline.",
		}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drowsiness_classifications_total",
			Help: "Frames classified, by status.",
		}, []string{"status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drowsiness_pipeline_failures_total",
			Help: "Frames that failed in the pipeline, by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "drowsiness_pipeline_seconds",
			Help:    "Time spent in one pipeline pass.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
	reg.MustRegister(m.frames, m.classifications, m.failures, m.duration)

	return m
}

func (m *Metrics) ObserveFrame(status string, elapsed time.Duration) {
	m.frames.Inc()
	m.classifications.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFailure(reason string, elapsed time.Duration) {
	m.frames.Inc()
	m.failures.WithLabelValues(reason).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ObserveFrame(string, time.Duration)   {}
func (Nop) ObserveFailure(string, time.Duration) {}
