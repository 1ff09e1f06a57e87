package compiler_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/compiler"
	"go.uber.org/mock/gomock"
)

var cfg = &domain.BuildConfiguration{
	OS:       "LINUX",
	Compiler: "gcc",
	CFlags:   "-g",
	Yacc:     "bison -y",
	Lex:      "flex",
}

// fakeToolchain writes the output named after -o unless the input is broken.
type fakeToolchain struct {
	mu       sync.Mutex
	commands [][]string
	broken   map[string]bool
}

func (f *fakeToolchain) execute(_ context.Context, cmd *domain.Command, _, _ io.Writer) error {
	f.mu.Lock()
	f.commands = append(f.commands, slices.Clone(cmd.Args))
	f.mu.Unlock()

	for _, arg := range cmd.Args {
		if f.broken[filepath.Base(arg)] {
			return fmt.Errorf("%s: syntax error", filepath.Base(arg))
		}
	}

	if i := slices.Index(cmd.Args, "-o"); i >= 0 && i+1 < len(cmd.Args) {
		return os.WriteFile(cmd.Args[i+1], []byte("out"), domain.FilePerm)
	}
	return nil
}

func (f *fakeToolchain) commandsFor(tool string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.commands {
		if c[0] == tool {
			out = append(out, c)
		}
	}
	return out
}

func newDriver(t *testing.T, tc *fakeToolchain) (*compiler.Driver, *mocks.MockSourceResolver) {
	t.Helper()
	ctrl := gomock.NewController(t)

	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(tc.execute).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()

	resolver := mocks.NewMockSourceResolver(ctrl)
	return compiler.New(executor, resolver, logger), resolver
}

func tenUnits(dir string) []domain.TranslationUnit {
	units := make([]domain.TranslationUnit, 10)
	for i := range units {
		units[i] = domain.NewTranslationUnit(dir, fmt.Sprintf("u%02d.c", i+1))
	}
	return units
}

func TestDriver_Compile_ToleratesFailures(t *testing.T) {
	dir := t.TempDir()
	tc := &fakeToolchain{broken: map[string]bool{"u07.c": true}}
	driver, _ := newDriver(t, tc)

	project := &domain.Project{SourceDir: dir, Compile: domain.CompileSpec{Jobs: 4, MinCompiled: 1}}

	report, err := driver.Compile(context.Background(), project, cfg, tenUnits(dir))
	require.NoError(t, err)

	assert.Equal(t, 9, report.Compiled())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, []string{"u07.c"}, report.FailedUnits())
	assert.Equal(t, domain.StatusFailed, report.Status("u07.c"))
	assert.Equal(t, domain.StatusCompiled, report.Status("u08.c"))

	require.Len(t, report.Results, 10)
	assert.Equal(t, "u01.c", report.Results[0].Unit.ID, "results keep input order")
	require.Error(t, report.Results[6].Err)
	assert.Contains(t, report.Results[6].Err.Error(), "syntax error")

	compiles := tc.commandsFor("gcc")
	require.Len(t, compiles, 10)
	assert.Equal(t, []string{"gcc", "-DLINUX", "-g", "-c"}, compiles[0][:4])

	_, err = os.Stat(filepath.Join(dir, "u08.o"))
	require.NoError(t, err)
}

func TestDriver_Compile_NoProgress(t *testing.T) {
	dir := t.TempDir()
	broken := map[string]bool{}
	for _, u := range tenUnits(dir) {
		broken[u.ID] = true
	}
	driver, _ := newDriver(t, &fakeToolchain{broken: broken})

	project := &domain.Project{SourceDir: dir}

	report, err := driver.Compile(context.Background(), project, cfg, tenUnits(dir))
	require.ErrorIs(t, err, domain.ErrNoUnitsCompiled)
	require.NotNil(t, report)
	assert.Equal(t, 10, report.Failed())
}

func TestDriver_Compile_ConfigurableThreshold(t *testing.T) {
	dir := t.TempDir()
	driver, _ := newDriver(t, &fakeToolchain{broken: map[string]bool{"u07.c": true}})

	project := &domain.Project{SourceDir: dir, Compile: domain.CompileSpec{MinCompiled: 10}}

	report, err := driver.Compile(context.Background(), project, cfg, tenUnits(dir))
	require.ErrorIs(t, err, domain.ErrNoUnitsCompiled)
	assert.Equal(t, 9, report.Compiled())
}

func TestDriver_Compile_Grammar(t *testing.T) {
	dir := t.TempDir()
	tc := &fakeToolchain{}
	driver, _ := newDriver(t, tc)

	units := []domain.TranslationUnit{
		domain.NewTranslationUnit(dir, "qgen.y"),
		domain.NewTranslationUnit(dir, "tokenizer.l"),
	}

	report, err := driver.Compile(context.Background(), &domain.Project{SourceDir: dir}, cfg, units)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Compiled())

	yacc := tc.commandsFor("bison")
	require.Len(t, yacc, 1)
	assert.Equal(t, []string{"bison", "-y", "-d", "-o", filepath.Join(dir, "qgen.tab.c"), filepath.Join(dir, "qgen.y")}, yacc[0])

	lex := tc.commandsFor("flex")
	require.Len(t, lex, 1)
	assert.Equal(t, []string{"flex", "-o", filepath.Join(dir, "tokenizer.yy.c"), filepath.Join(dir, "tokenizer.l")}, lex[0])

	compiles := tc.commandsFor("gcc")
	require.Len(t, compiles, 2)
	inputs := []string{compiles[0][len(compiles[0])-3], compiles[1][len(compiles[1])-3]}
	assert.ElementsMatch(t, []string{filepath.Join(dir, "qgen.tab.c"), filepath.Join(dir, "tokenizer.yy.c")}, inputs)
}

func TestDriver_Compile_GrammarFailureMarksOnlyThatUnit(t *testing.T) {
	dir := t.TempDir()
	tc := &fakeToolchain{broken: map[string]bool{"qgen.y": true}}
	driver, _ := newDriver(t, tc)

	units := []domain.TranslationUnit{
		domain.NewTranslationUnit(dir, "qgen.y"),
		domain.NewTranslationUnit(dir, "driver.c"),
	}

	report, err := driver.Compile(context.Background(), &domain.Project{SourceDir: dir}, cfg, units)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, report.Status("qgen.y"))
	assert.Equal(t, domain.StatusCompiled, report.Status("driver.c"))
	assert.Len(t, tc.commandsFor("gcc"), 1, "a unit whose grammar failed is not compiled")
}

func TestDriver_Compile_RespectsJobLimit(t *testing.T) {
	dir := t.TempDir()
	ctrl := gomock.NewController(t)

	var running, peak atomic.Int32
	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *domain.Command, _, _ io.Writer) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		}).Times(10)

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()

	driver := compiler.New(executor, mocks.NewMockSourceResolver(ctrl), logger)
	project := &domain.Project{SourceDir: dir, Compile: domain.CompileSpec{Jobs: 2}}

	_, err := driver.Compile(context.Background(), project, cfg, tenUnits(dir))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDriver_BuildPrerequisites(t *testing.T) {
	dir := t.TempDir()
	tc := &fakeToolchain{}
	driver, _ := newDriver(t, tc)

	// The fake make writes the binary named after -o.
	project := &domain.Project{
		SourceDir:     dir,
		Prerequisites: []domain.Prerequisite{{Name: "checksum", Command: []string{"make", "-o", filepath.Join(dir, "checksum")}}},
	}
	require.NoError(t, driver.BuildPrerequisites(context.Background(), project))
	assert.Len(t, tc.commandsFor("make"), 1)
}

func TestDriver_BuildPrerequisites_Failure(t *testing.T) {
	dir := t.TempDir()
	driver, _ := newDriver(t, &fakeToolchain{broken: map[string]bool{"checksum": true}})

	project := &domain.Project{
		SourceDir:     dir,
		Prerequisites: []domain.Prerequisite{{Name: "checksum", Command: []string{"make", "-f", "Makefile", "checksum"}}},
	}

	err := driver.BuildPrerequisites(context.Background(), project)
	require.ErrorIs(t, err, domain.ErrPrerequisiteBuild)
	assert.ErrorContains(t, err, "checksum")
}

func TestDriver_BuildPrerequisites_NoBinary(t *testing.T) {
	dir := t.TempDir()
	// A stale binary from an earlier run must not satisfy the check.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checksum"), []byte("old"), domain.ExecPerm))
	driver, _ := newDriver(t, &fakeToolchain{})

	project := &domain.Project{
		SourceDir:     dir,
		Prerequisites: []domain.Prerequisite{{Name: "checksum", Command: []string{"make", "checksum"}}},
	}

	err := driver.BuildPrerequisites(context.Background(), project)
	require.ErrorIs(t, err, domain.ErrPrerequisiteBuild)
}

func TestRemoveOutputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"w_item.o", "qgen.o", "qgen.tab.c", "qgen.tab.h", "w_item.c"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, domain.FilePerm))
	}

	units := []domain.TranslationUnit{
		domain.NewTranslationUnit(dir, "w_item.c"),
		domain.NewTranslationUnit(dir, "qgen.y"),
		domain.NewTranslationUnit(dir, "tokenizer.l"),
	}
	require.NoError(t, compiler.RemoveOutputs(units))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "w_item.c", entries[0].Name())
}

func TestDriver_Run(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "w_item.o"), []byte("stale"), domain.FilePerm))

	tc := &fakeToolchain{}
	driver, resolver := newDriver(t, tc)

	project := &domain.Project{
		SourceDir: dir,
		Compile:   domain.CompileSpec{Sources: []string{"*.c"}, Exclude: []string{"print.c"}},
	}
	resolver.EXPECT().ResolveSources(dir, []string{"*.c"}, []string{"print.c"}).Return([]string{"w_item.c", "driver.c"}, nil)

	report, err := driver.Run(context.Background(), project, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Compiled())

	data, err := os.ReadFile(filepath.Join(dir, "w_item.o"))
	require.NoError(t, err)
	assert.Equal(t, "out", string(data), "the stale object was replaced")
}

func TestDriver_Run_ResolverError(t *testing.T) {
	driver, resolver := newDriver(t, &fakeToolchain{})
	resolver.EXPECT().ResolveSources(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("bad pattern"))

	_, err := driver.Run(context.Background(), &domain.Project{SourceDir: t.TempDir()}, cfg)
	require.Error(t, err)
}

func TestDriver_Units_ObjectCollision(t *testing.T) {
	dir := t.TempDir()
	driver, resolver := newDriver(t, &fakeToolchain{})
	resolver.EXPECT().ResolveSources(dir, gomock.Any(), gomock.Any()).Return([]string{"qgen.c", "qgen.y", "w_item.c"}, nil)

	_, err := driver.Units(&domain.Project{SourceDir: dir})
	require.ErrorIs(t, err, domain.ErrObjectCollision)
	assert.Contains(t, err.Error(), "qgen.c")
	assert.Contains(t, err.Error(), "qgen.y")
}
