package qnode

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qgrad/circuit"
)

// Metrics holds the backend instrumentation collectors.
type Metrics struct {
	// ExecutionsTotal counts backend calls by result ("ok" or "error").
	ExecutionsTotal *prometheus.CounterVec
	// ExecutionSeconds observes backend call latency.
	ExecutionSeconds prometheus.Histogram
}

// NewMetrics creates and registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExecutionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "qgrad",
				Subsystem: "backend",
				Name:      "executions_total",
				Help:      "Circuit executions by result.",
			},
			[]string{"result"},
		),
		ExecutionSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "qgrad",
				Subsystem: "backend",
				Name:      "execution_seconds",
				Help:      "Circuit execution latency.",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
		),
	}
}

type instrumented struct {
	next    Backend
	metrics *Metrics
}

// Instrument wraps b so every call is counted and timed.
func Instrument(b Backend, m *Metrics) Backend {
	return &instrumented{next: b, metrics: m}
}

func (b *instrumented) Execute(ctx context.Context, ops []*circuit.Operation, params []float64) ([]float64, error) {
	start := time.Now()
	out, err := b.next.Execute(ctx, ops, params)
	b.metrics.ExecutionSeconds.Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	b.metrics.ExecutionsTotal.WithLabelValues(result).Inc()
	return out, err
}
