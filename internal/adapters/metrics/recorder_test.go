package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/metrics"
	"go.trai.ch/kiln/internal/core/domain"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	reg := prom.NewRegistry()
	pr := metrics.NewPrometheusRecorder(reg)

	pr.AddUnits("COMPILED", 9)
	pr.AddUnits("FAILED", 1)
	pr.AddUnits("FAILED", 0)
	pr.IncTarget("LINKED")
	pr.IncTarget("LINKED")
	pr.IncWarning("smoke_test")
	pr.IncRun("done")

	expected := `
# HELP kiln_units_total Translation units by compile status
# TYPE kiln_units_total counter
kiln_units_total{status="COMPILED"} 9
kiln_units_total{status="FAILED"} 1
# HELP kiln_targets_total Link targets by final state
# TYPE kiln_targets_total counter
kiln_targets_total{state="LINKED"} 2
# HELP kiln_warnings_total Recorded warnings by kind
# TYPE kiln_warnings_total counter
kiln_warnings_total{kind="smoke_test"} 1
# HELP kiln_runs_total Pipeline runs by outcome
# TYPE kiln_runs_total counter
kiln_runs_total{outcome="done"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"kiln_units_total", "kiln_targets_total", "kiln_warnings_total", "kiln_runs_total"))
}

func TestPrometheusRecorder_StageDuration(t *testing.T) {
	pr := metrics.NewPrometheusRecorder(nil)

	pr.ObserveStage("compile", 3*time.Second)
	pr.ObserveStage("link", 200*time.Millisecond)

	count, err := testutil.GatherAndCount(pr.Registry(), "kiln_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPrometheusRecorder_Export(t *testing.T) {
	pr := metrics.NewPrometheusRecorder(nil)
	pr.IncRun("failed")

	path := domain.DefaultMetricsPath(t.TempDir())
	require.NoError(t, pr.Export(path))

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Contains(t, string(data), `kiln_runs_total{outcome="failed"} 1`)
}

func TestPrometheusRecorder_ExportFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, domain.FilePerm))

	err := metrics.NewPrometheusRecorder(nil).Export(filepath.Join(blocker, "metrics.prom"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMetricsExportFailed)
}

func TestNoopRecorder(t *testing.T) {
	var r metrics.NoopRecorder
	r.ObserveStage("compile", time.Second)
	r.AddUnits("COMPILED", 1)
	r.IncTarget("LINKED")
	r.IncWarning("compile")
	r.IncRun("done")
	require.NoError(t, r.Export(filepath.Join(t.TempDir(), "none")))
}
