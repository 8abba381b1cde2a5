// Package metrics counts update outcomes, AUL commands and catalog edits,
// and exports them in the Prometheus text format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fastattackv/apy-launcher/internal/aul"
	"github.com/fastattackv/apy-launcher/internal/update"
)

const namespace = "apyl"

// Metrics is an update.Observer backed by a private registry
type Metrics struct {
	registry *prometheus.Registry
	updates  *prometheus.CounterVec
	commands *prometheus.CounterVec
	catalog  *prometheus.CounterVec
	duration prometheus.Histogram
	state    prometheus.Gauge
	applied  prometheus.Counter
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Finished updates by outcome.",
		}, []string{"outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aul_commands_total",
			Help:      "Executed AUL commands by opcode and result.",
		}, []string{"op", "result"}),
		catalog: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_operations_total",
			Help:      "Catalog edits by operation and result.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Wall time of finished updates.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "update_state",
			Help:      "Current update state code.",
		}),
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "versions_applied_total",
			Help:      "Versions applied by successful updates.",
		}),
	}
	m.registry.MustRegister(m.updates, m.commands, m.catalog, m.duration, m.state, m.applied)
	return m
}

// Registry exposes the registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// StateChanged records the current phase
func (m *Metrics) StateChanged(s update.State) {
	m.state.Set(float64(s))
}

// CommandApplied counts one AUL command
func (m *Metrics) CommandApplied(op aul.Op, err error) {
	if op == "" {
		op = "invalid"
	}
	m.commands.WithLabelValues(string(op), result(err)).Inc()
}

// Finished counts an outcome and its duration
func (m *Metrics) Finished(o update.Outcome, elapsed time.Duration) {
	m.state.Set(float64(o.State))
	m.updates.WithLabelValues(o.State.String()).Inc()
	if o.State == update.UpToDate {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if o.State == update.Done {
		m.applied.Add(float64(len(o.Patches)))
	}
}

// CatalogOp counts one catalog edit
func (m *Metrics) CatalogOp(op string, err error) {
	m.catalog.WithLabelValues(op, result(err)).Inc()
}

// WriteTextfile writes every metric to path for a node exporter textfile
// collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ update.Observer = (*Metrics)(nil)
