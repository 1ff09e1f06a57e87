package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/metrics"
	"go.trai.ch/kiln/internal/adapters/shell"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.uber.org/mock/gomock"
)

const template = `# generic template
OS =
LINUX_CC = cc
LINUX_LIBS =
`

// toolchain fakes gcc and runs everything else, the linked binaries included, for real.
// Linked binaries are shell scripts that describe themselves on -help and otherwise
// write a data file into their working directory.
type toolchain struct {
	real ports.Executor

	mu       sync.Mutex
	links    [][]string
	broken   map[string]bool
	silent   bool
	linkFail bool
}

func (tc *toolchain) execute(ctx context.Context, cmd *domain.Command, stdout, stderr io.Writer) error {
	if cmd.Args[0] != "gcc" {
		return tc.real.Execute(ctx, cmd, stdout, stderr)
	}

	for _, arg := range cmd.Args {
		if tc.broken[filepath.Base(arg)] {
			return fmt.Errorf("%s: syntax error", filepath.Base(arg))
		}
	}

	out := cmd.Args[slices.Index(cmd.Args, "-o")+1]
	if slices.Contains(cmd.Args, "-c") {
		return os.WriteFile(out, []byte("obj"), domain.FilePerm)
	}

	tc.mu.Lock()
	tc.links = append(tc.links, slices.Clone(cmd.Args))
	tc.mu.Unlock()
	if tc.linkFail {
		return errors.New("collect2: error: ld returned 1 exit status")
	}

	body := "#!/bin/sh\nif [ \"$1\" = \"-help\" ]; then echo \"" + filepath.Base(out) + " 1.0\"; exit 0; fi\n"
	if !tc.silent {
		body += "echo row > table.dat\n"
	}
	return os.WriteFile(out, []byte(body), domain.FilePerm)
}

type fixture struct {
	project  *domain.Project
	tc       *toolchain
	recorder *metrics.PrometheusRecorder
	pipeline *pipeline.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stand-in binaries are shell scripts")
	}

	root := t.TempDir()
	src := filepath.Join(root, "tools")
	require.NoError(t, os.MkdirAll(src, domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Makefile.suite"), []byte(template), domain.FilePerm))

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%02d.c", i+1)
		require.NoError(t, os.WriteFile(filepath.Join(src, ids[i]), []byte("int x;\n"), domain.FilePerm))
	}

	project := &domain.Project{
		Root:      root,
		SourceDir: src,
		Configure: domain.ConfigureSpec{
			Template: "Makefile.suite",
			Output:   "Makefile",
			Rules: []domain.PatchRule{
				{Key: "OS", Value: "LINUX", Role: domain.RoleOS},
				{Key: "LINUX_CC", Value: "gcc", Role: domain.RoleCompiler},
				{Key: "LINUX_LIBS", Value: "-lm", Role: domain.RoleLDFlags},
			},
		},
		Compile: domain.CompileSpec{Sources: []string{"*.c"}, Jobs: 2, MinCompiled: 1},
		Link: domain.LinkSpec{
			Targets:       []string{"tool"},
			ToleranceFlag: "-Wl,--allow-multiple-definition",
			Manifests: map[string][]string{
				"tool":  {"u10.c", "u01.c", "u02.c"},
				"needs": {"u01.c", "u07.c"},
				"other": {"u03.c"},
			},
		},
		Verify:  domain.VerifySpec{DescribeArg: "-help", Timeout: 5 * time.Second},
		Install: domain.InstallSpec{Dir: filepath.Join(root, "bin")},
		Smoke:   []domain.SmokeSpec{{Target: "tool", Args: []string{"-scale", "1"}, Artifacts: []string{"*.dat"}}},
	}

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	tc := &toolchain{real: shell.NewExecutor(logger), broken: map[string]bool{}}
	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(tc.execute).AnyTimes()

	recorder := metrics.NewPrometheusRecorder(nil)
	p := pipeline.New(executor, fs.NewResolver(), fs.NewHasher(), telemetry.NewNoOpTracer(), recorder, logger)

	return &fixture{project: project, tc: tc, recorder: recorder, pipeline: p}
}

func TestPipeline_Run_Done(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, report.State)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, "LINUX", report.Config.OS)
	assert.Equal(t, 10, report.Compile.Compiled())

	require.Len(t, report.Targets, 1)
	assert.Equal(t, domain.TargetLinked, report.Targets[0].State)

	bin := report.Binary("tool")
	require.NotNil(t, bin)
	assert.Equal(t, domain.BinaryVerified, bin.State)
	assert.Equal(t, "tool 1.0", bin.Describe)
	assert.NotEmpty(t, bin.Digest)

	require.Len(t, report.Links, 1)
	dest, err := os.Readlink(filepath.Join(f.project.Install.Dir, "tool"))
	require.NoError(t, err)
	assert.Equal(t, bin.Path, dest)

	assert.NoFileExists(t, filepath.Join(f.project.SourceDir, "table.dat"), "smoke artifacts are removed")
	assert.FileExists(t, f.project.OutputPath())

	require.Len(t, f.tc.links, 1)
	n := len(f.tc.links[0])
	assert.Equal(t, []string{
		filepath.Join(f.project.SourceDir, "u10.o"),
		filepath.Join(f.project.SourceDir, "u01.o"),
		filepath.Join(f.project.SourceDir, "u02.o"),
		"-lm",
	}, f.tc.links[0][n-4:])
}

func TestPipeline_Run_ToleratesCompileFailure(t *testing.T) {
	f := newFixture(t)
	f.tc.broken["u07.c"] = true

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, report.State)
	assert.Equal(t, 9, report.Compile.Compiled())
	assert.Equal(t, 1, report.Compile.Failed())

	warnings := report.WarningsOf(domain.WarnCompile)
	require.Len(t, warnings, 1)
	assert.Equal(t, "u07.c", warnings[0].Subject)
}

func TestPipeline_Run_MissingUnit(t *testing.T) {
	f := newFixture(t)
	f.tc.broken["u07.c"] = true

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{Targets: []string{"needs"}})

	require.ErrorIs(t, err, domain.ErrMissingUnit)
	require.ErrorIs(t, err, domain.ErrLink)
	assert.ErrorContains(t, err, "u07.c")
	assert.Equal(t, domain.StateFailed, report.State)
	assert.Equal(t, domain.TargetLinkFailed, report.Target("needs").State)
	assert.Empty(t, f.tc.links, "the linker is never invoked")

	expected := `
# HELP kiln_runs_total Pipeline runs by outcome
# TYPE kiln_runs_total counter
kiln_runs_total{outcome="failed"} 1
# HELP kiln_targets_total Link targets by final state
# TYPE kiln_targets_total counter
kiln_targets_total{state="LINK_FAILED"} 1
`
	require.NoError(t, testutil.GatherAndCompare(f.recorder.Registry(), strings.NewReader(expected),
		"kiln_runs_total", "kiln_targets_total"))
}

func TestPipeline_Run_LinkerFails(t *testing.T) {
	f := newFixture(t)
	f.tc.linkFail = true

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})

	require.ErrorIs(t, err, domain.ErrLink)
	assert.NotErrorIs(t, err, domain.ErrMissingUnit)
	assert.Equal(t, domain.StateFailed, report.State)
}

func TestPipeline_Run_UnknownTarget(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{Targets: []string{"nope"}})

	require.ErrorIs(t, err, domain.ErrTargetNotFound)
	assert.Equal(t, domain.StateFailed, report.State)
	assert.NoFileExists(t, f.project.OutputPath(), "nothing runs for an unknown target")
}

func TestPipeline_Run_ConfigurationError(t *testing.T) {
	f := newFixture(t)
	f.project.Configure.Rules = append(f.project.Configure.Rules, domain.PatchRule{Key: "SOLARIS_CC", Value: "cc"})

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})

	require.ErrorIs(t, err, domain.ErrAnchorNotFound)
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, domain.StateFailed, report.State)
	assert.Nil(t, report.Compile)
}

func TestPipeline_Run_NoProgress(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 10; i++ {
		f.tc.broken[fmt.Sprintf("u%02d.c", i)] = true
	}

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})

	require.ErrorIs(t, err, domain.ErrNoUnitsCompiled)
	assert.Equal(t, domain.StateFailed, report.State)
	assert.Len(t, report.WarningsOf(domain.WarnCompile), 10)
}

func TestPipeline_Run_SmokeWithoutArtifacts(t *testing.T) {
	f := newFixture(t)
	f.tc.silent = true

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, report.State)
	warnings := report.WarningsOf(domain.WarnSmokeTest)
	require.Len(t, warnings, 1)
	assert.Equal(t, "tool", warnings[0].Subject)
}

func TestPipeline_Run_SkipInstall(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{NoInstall: true, Jobs: 1})
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, report.State)
	assert.Empty(t, report.Links)
	assert.NoDirExists(t, f.project.Install.Dir)
	assert.Equal(t, 2, f.project.Compile.Jobs, "job override does not leak into the project")
}

func TestPipeline_Run_RemovesStaleLinks(t *testing.T) {
	f := newFixture(t)

	first, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})
	require.NoError(t, err)
	record := first.Record(time.Now())

	second, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{
		Targets:  []string{"other"},
		Previous: &record,
	})
	require.NoError(t, err)
	require.Len(t, second.Links, 1)

	_, err = os.Lstat(filepath.Join(f.project.Install.Dir, "tool"))
	require.ErrorIs(t, err, os.ErrNotExist, "the link of a target no longer built is removed")

	dest, err := os.Readlink(filepath.Join(f.project.Install.Dir, "other"))
	require.NoError(t, err)
	assert.Equal(t, f.project.BinaryPath("other"), dest)
}

func TestPipeline_Run_KeepsLinksAcrossFailedRun(t *testing.T) {
	f := newFixture(t)

	first, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})
	require.NoError(t, err)
	firstRecord := first.Record(time.Now())
	require.Len(t, firstRecord.Links, 1)

	f.tc.linkFail = true
	second, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{Previous: &firstRecord})
	require.ErrorIs(t, err, domain.ErrLink)
	secondRecord := second.Record(time.Now())
	assert.Equal(t, firstRecord.Links, secondRecord.Links, "links still on disk stay recorded")

	f.tc.linkFail = false
	_, err = f.pipeline.Run(context.Background(), f.project, pipeline.Options{
		Targets:  []string{"other"},
		Previous: &secondRecord,
	})
	require.NoError(t, err)

	_, err = os.Lstat(filepath.Join(f.project.Install.Dir, "tool"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPipeline_Run_SkipInstallKeepsPreviousLinks(t *testing.T) {
	f := newFixture(t)

	first, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{})
	require.NoError(t, err)
	record := first.Record(time.Now())

	second, err := f.pipeline.Run(context.Background(), f.project, pipeline.Options{NoInstall: true, Previous: &record})
	require.NoError(t, err)
	assert.Equal(t, record.Links, second.Links)
}

func TestPipeline_Run_Spans(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)

	var started []string
	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().EmitPlan(gomock.Any(), pipeline.Stages, []string{"tool"})
	tracer.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, name string) (context.Context, ports.Span) {
		started = append(started, name)
		span := mocks.NewMockSpan(ctrl)
		span.EXPECT().End()
		return ctx, span
	}).Times(len(pipeline.Stages))

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(f.tc.execute).AnyTimes()

	p := pipeline.New(executor, fs.NewResolver(), fs.NewHasher(), tracer, metrics.NoopRecorder{}, logger)
	report, err := p.Run(context.Background(), f.project, pipeline.Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, report.State)
	assert.Equal(t, pipeline.Stages, started)
}
