// Package telemetry counts compilations, uploads, submissions and lifecycle
// actions on a private Prometheus registry. The CLI writes the registry in the
// text exposition format so it can be picked up by a textfile collector.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Outcome label values
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeRefused = "refused"
	OutcomeSkipped = "skipped"
)

// Metrics holds the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	compilations *prometheus.CounterVec
	uploads      *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	actions      *prometheus.CounterVec
}

// New creates the counters on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		compilations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dlts",
			Name:      "compilations_total",
			Help:      "Total number of form compilations by test type and outcome.",
		}, []string{"test_type", "outcome"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dlts",
			Name:      "uploads_total",
			Help:      "Total number of script uploads by outcome.",
		}, []string{"outcome"}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dlts",
			Name:      "submissions_total",
			Help:      "Total number of submissions to the execution service by outcome.",
		}, []string{"outcome"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dlts",
			Name:      "actions_total",
			Help:      "Total number of lifecycle actions by action and outcome.",
		}, []string{"action", "outcome"}),
	}
}

// Compilation records one compile attempt
func (m *Metrics) Compilation(testType, outcome string) {
	if m == nil {
		return
	}
	if testType == "" {
		testType = "unknown"
	}
	m.compilations.WithLabelValues(testType, outcome).Inc()
}

// Upload records one script upload
func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// Submission records one submit call
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// Action records a start, cancel or delete request
func (m *Metrics) Action(action, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Inc()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteText writes every metric family in the text exposition format
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile writes the text dump to path through a temporary file so that
// collectors never read a partial file
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dlts-metrics-*")
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := m.WriteText(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
