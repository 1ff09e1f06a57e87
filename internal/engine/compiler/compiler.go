// Package compiler builds prerequisite utilities and compiles every translation unit,
// tolerating per-unit failures.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Driver runs the tolerant compile stage.
type Driver struct {
	executor ports.Executor
	resolver ports.SourceResolver
	logger   ports.Logger
}

// New creates a new Driver.
func New(executor ports.Executor, resolver ports.SourceResolver, logger ports.Logger) *Driver {
	return &Driver{
		executor: executor,
		resolver: resolver,
		logger:   logger,
	}
}

// Run builds the prerequisites, removes stale outputs and compiles every unit of the project.
func (d *Driver) Run(ctx context.Context, project *domain.Project, cfg *domain.BuildConfiguration) (*domain.CompileReport, error) {
	if err := d.BuildPrerequisites(ctx, project); err != nil {
		return nil, err
	}

	units, err := d.Units(project)
	if err != nil {
		return nil, err
	}

	if err := RemoveOutputs(units); err != nil {
		return nil, err
	}

	return d.Compile(ctx, project, cfg, units)
}

// BuildPrerequisites builds every prerequisite utility through its own command.
// A failing command, or one that exits zero without producing the utility, is fatal.
func (d *Driver) BuildPrerequisites(ctx context.Context, project *domain.Project) error {
	for _, pre := range project.Prerequisites {
		binary := filepath.Join(project.SourceDir, pre.Name)

		if err := removeIfExists(binary); err != nil {
			wrapped := zerr.Wrap(domain.ErrPrerequisiteBuild, "failed to remove previous "+pre.Name)
			return zerr.With(zerr.With(wrapped, "cause", err.Error()), "path", binary)
		}

		d.logger.Info(fmt.Sprintf("building prerequisite %s", pre.Name))
		cmd := domain.NewCommand(project.SourceDir, pre.Command...)
		if err := d.executor.Execute(ctx, cmd, nil, nil); err != nil {
			wrapped := zerr.Wrap(domain.ErrPrerequisiteBuild, pre.Name+" did not build")
			wrapped = zerr.With(zerr.With(wrapped, "cause", err.Error()), "command", cmd.String())
			return zerr.With(wrapped, "prerequisite", pre.Name)
		}

		if _, err := os.Stat(binary); err != nil {
			wrapped := zerr.Wrap(domain.ErrPrerequisiteBuild, pre.Name+" exited zero but produced no binary")
			return zerr.With(zerr.With(wrapped, "prerequisite", pre.Name), "path", binary)
		}
	}
	return nil
}

// Units resolves the project's translation units in id order.
func (d *Driver) Units(project *domain.Project) ([]domain.TranslationUnit, error) {
	ids, err := d.resolver.ResolveSources(project.SourceDir, project.Compile.Sources, project.Compile.Exclude)
	if err != nil {
		return nil, err
	}

	units := make([]domain.TranslationUnit, len(ids))
	owners := make(map[string]string, len(ids))
	for i, id := range ids {
		units[i] = domain.NewTranslationUnit(project.SourceDir, id)
		if owner, ok := owners[units[i].Object]; ok {
			err := zerr.With(zerr.Wrap(domain.ErrObjectCollision, "units "+owner+" and "+id+" collide"), "object", units[i].Object)
			return nil, zerr.With(err, "units", []string{owner, id})
		}
		owners[units[i].Object] = id
	}
	return units, nil
}

// RemoveOutputs deletes the objects and generated sources of units. Absent files are ignored.
func RemoveOutputs(units []domain.TranslationUnit) error {
	for _, u := range units {
		paths := []string{u.Object}
		if u.Generated != "" {
			paths = append(paths, u.Generated)
		}
		if u.Grammar == domain.GrammarYacc {
			paths = append(paths, headerOf(u.Generated))
		}
		for _, path := range paths {
			if err := removeIfExists(path); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to remove stale output"), "path", path)
			}
		}
	}
	return nil
}

// Compile compiles units in parallel. Grammar units are generated first so that
// lexers can include parser headers. A failing unit never stops its siblings.
func (d *Driver) Compile(
	ctx context.Context,
	project *domain.Project,
	cfg *domain.BuildConfiguration,
	units []domain.TranslationUnit,
) (*domain.CompileReport, error) {
	jobs := project.Compile.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	table := newStatusTable(units)

	d.logger.Info(fmt.Sprintf("compiling %d unit(s) with %d job(s)", len(units), jobs))

	// Phase 1: grammar generation.
	d.fanOut(jobs, units, func(u domain.TranslationUnit) {
		if u.Grammar == domain.GrammarNone {
			return
		}
		if err := d.generate(ctx, project, cfg, u); err != nil {
			table.set(u.ID, domain.StatusFailed, err)
		}
	})

	// Phase 2: compilation of everything still pending.
	d.fanOut(jobs, units, func(u domain.TranslationUnit) {
		if table.status(u.ID) != domain.StatusPending {
			return
		}
		if err := d.compileUnit(ctx, project, cfg, u); err != nil {
			table.set(u.ID, domain.StatusFailed, err)
			return
		}
		table.set(u.ID, domain.StatusCompiled, nil)
	})

	report := table.report()

	if err := ctx.Err(); err != nil {
		return report, zerr.Wrap(err, "compilation interrupted")
	}

	minCompiled := max(project.Compile.MinCompiled, 1)
	if report.Compiled() < minCompiled {
		err := zerr.With(zerr.Wrap(domain.ErrNoUnitsCompiled, "compile stage made no progress"), "compiled", report.Compiled())
		err = zerr.With(err, "failed", report.Failed())
		return report, zerr.With(err, "min_compiled", minCompiled)
	}

	d.logger.Info(fmt.Sprintf("compiled %d unit(s), %d failed", report.Compiled(), report.Failed()))
	return report, nil
}

func (d *Driver) fanOut(jobs int, units []domain.TranslationUnit, fn func(domain.TranslationUnit)) {
	var g errgroup.Group
	g.SetLimit(jobs)
	for _, u := range units {
		g.Go(func() error {
			fn(u)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Driver) generate(ctx context.Context, project *domain.Project, cfg *domain.BuildConfiguration, u domain.TranslationUnit) error {
	var argv []string
	switch u.Grammar {
	case domain.GrammarYacc:
		argv = orDefault(cfg.YaccCommand(), "yacc")
		argv = append(argv, "-d", "-o", u.Generated, u.Source)
	case domain.GrammarLex:
		argv = orDefault(cfg.LexCommand(), "lex")
		argv = append(argv, "-o", u.Generated, u.Source)
	default:
		return nil
	}

	cmd := domain.NewCommand(project.SourceDir, argv...)
	if err := d.executor.Execute(ctx, cmd, nil, nil); err != nil {
		return zerr.With(zerr.Wrap(err, "grammar generation failed"), "unit", u.ID)
	}
	return nil
}

func (d *Driver) compileUnit(ctx context.Context, project *domain.Project, cfg *domain.BuildConfiguration, u domain.TranslationUnit) error {
	argv := orDefault(cfg.CompilerCommand(), "cc")
	argv = append(argv, cfg.CompileFlags()...)
	argv = append(argv, "-c", u.CompileInput(), "-o", u.Object)

	cmd := domain.NewCommand(project.SourceDir, argv...)
	if err := d.executor.Execute(ctx, cmd, nil, nil); err != nil {
		return zerr.With(zerr.Wrap(err, "compilation failed"), "unit", u.ID)
	}
	return nil
}

// statusTable holds the per-unit outcome of a batch.
type statusTable struct {
	mu      sync.Mutex
	order   []domain.TranslationUnit
	results map[string]domain.UnitResult
}

func newStatusTable(units []domain.TranslationUnit) *statusTable {
	t := &statusTable{
		order:   units,
		results: make(map[string]domain.UnitResult, len(units)),
	}
	for _, u := range units {
		t.results[u.ID] = domain.UnitResult{Unit: u, Status: domain.StatusPending}
	}
	return t
}

func (t *statusTable) set(id string, status domain.CompileStatus, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	res := t.results[id]
	res.Status = status
	res.Err = err
	t.results[id] = res
}

func (t *statusTable) status(id string) domain.CompileStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.results[id].Status
}

// report converts the table into input order. Units left pending were never attempted.
func (t *statusTable) report() *domain.CompileReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := &domain.CompileReport{Results: make([]domain.UnitResult, 0, len(t.order))}
	for _, u := range t.order {
		report.Results = append(report.Results, t.results[u.ID])
	}
	return report
}

func orDefault(argv []string, fallback string) []string {
	if len(argv) == 0 {
		return []string{fallback}
	}
	return argv
}

func headerOf(generated string) string {
	return strings.TrimSuffix(generated, ".c") + ".h"
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
