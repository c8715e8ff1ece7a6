// Package metrics exposes prometheus counters for gate outcomes.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"uniclaw/internal/model"
)

// Metrics owns a private registry so runs can be exported as a textfile
// without touching the global default registry.
type Metrics struct {
	Registry   *prometheus.Registry
	Decisions  *prometheus.CounterVec
	Malformed  prometheus.Counter
	NetProfit  prometheus.Histogram
	LastCursor prometheus.Gauge
}

// New registers the gate collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uniclaw",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Gate decisions by operation type and reason code.",
		}, []string{"type", "reason"}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uniclaw",
			Subsystem: "gate",
			Name:      "malformed_total",
			Help:      "Candidates rejected as malformed input.",
		}),
		NetProfit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "uniclaw",
			Subsystem: "gate",
			Name:      "approved_net_profit_usd",
			Help:      "Net profit of approved operations.",
			Buckets:   []float64{5, 15, 50, 100, 500, 1000, 5000},
		}),
		LastCursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uniclaw",
			Subsystem: "review",
			Name:      "last_observed_at",
			Help:      "Observation timestamp of the last decided candidate.",
		}),
	}
	m.Registry.MustRegister(m.Decisions, m.Malformed, m.NetProfit, m.LastCursor)
	return m
}

// ObserveDecision records one gate outcome.
func (m *Metrics) ObserveDecision(d model.GateDecision) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(string(d.Type), d.ReasonCode).Inc()
	if d.Approved {
		m.NetProfit.Observe(d.NetProfitUSD)
	}
	if d.ObservedAt > 0 {
		m.LastCursor.Set(float64(d.ObservedAt))
	}
}

// ObserveMalformed counts a candidate that failed validation.
func (m *Metrics) ObserveMalformed() {
	if m == nil {
		return
	}
	m.Malformed.Inc()
}

// WriteTextfile writes the registry in node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
