// Package metrics records pipeline metrics with Prometheus and exports them as a text file.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

const namespace = "kiln"

var _ ports.Recorder = (*PrometheusRecorder)(nil)

// PrometheusRecorder implements ports.Recorder using Prometheus metrics on a private registry.
type PrometheusRecorder struct {
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	units         *prom.CounterVec
	targets       *prom.CounterVec
	warnings      *prom.CounterVec
	runs          *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the metrics. A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		registry: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		units: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Translation units by compile status",
		}, []string{"status"}),
		targets: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "targets_total",
			Help:      "Link targets by final state",
		}, []string{"state"}),
		warnings: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Recorded warnings by kind",
		}, []string{"kind"}),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.stageDuration, pr.units, pr.targets, pr.warnings, pr.runs)

	return pr
}

// Registry returns the registry holding the recorder's metrics.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	return p.registry
}

// ObserveStage records how long a pipeline stage took.
func (p *PrometheusRecorder) ObserveStage(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddUnits counts translation units by compile status.
func (p *PrometheusRecorder) AddUnits(status string, n int) {
	if n <= 0 {
		return
	}
	p.units.WithLabelValues(status).Add(float64(n))
}

// IncTarget counts a target by link state.
func (p *PrometheusRecorder) IncTarget(state string) {
	p.targets.WithLabelValues(state).Inc()
}

// IncWarning counts a warning by kind.
func (p *PrometheusRecorder) IncWarning(kind string) {
	p.warnings.WithLabelValues(kind).Inc()
}

// IncRun counts a finished run by outcome.
func (p *PrometheusRecorder) IncRun(outcome string) {
	p.runs.WithLabelValues(outcome).Inc()
}

// Export writes the metrics in the Prometheus text format to path, replacing any previous file.
func (p *PrometheusRecorder) Export(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrMetricsExportFailed, "cannot create metrics directory"), "cause", err.Error()), "path", path)
	}
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrMetricsExportFailed, "cannot write textfile"), "cause", err.Error()), "path", path)
	}
	return nil
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

var _ ports.Recorder = NoopRecorder{}

// ObserveStage does nothing.
func (NoopRecorder) ObserveStage(string, time.Duration) {}

// AddUnits does nothing.
func (NoopRecorder) AddUnits(string, int) {}

// IncTarget does nothing.
func (NoopRecorder) IncTarget(string) {}

// IncWarning does nothing.
func (NoopRecorder) IncWarning(string) {}

// IncRun does nothing.
func (NoopRecorder) IncRun(string) {}

// Export does nothing.
func (NoopRecorder) Export(string) error { return nil }
