// Package pipeline drives a build through its stages as a state machine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/compiler"
	"go.trai.ch/kiln/internal/engine/installer"
	"go.trai.ch/kiln/internal/engine/linker"
	"go.trai.ch/kiln/internal/engine/manifest"
	"go.trai.ch/kiln/internal/engine/patcher"
	"go.trai.ch/kiln/internal/engine/smoke"
	"go.trai.ch/kiln/internal/engine/verifier"
	"go.trai.ch/zerr"
)

// Stage names, in execution order. They name spans and metric labels.
const (
	StageConfigure = "configure"
	StageCompile   = "compile"
	StageLink      = "link"
	StageVerify    = "verify"
	StageInstall   = "install"
	StageSmoke     = "smoke"
)

// Stages lists every stage in execution order.
var Stages = []string{StageConfigure, StageCompile, StageLink, StageVerify, StageInstall, StageSmoke}

// Options tune a single run.
type Options struct {
	// Targets overrides the project's target list when not empty.
	Targets []string
	// Jobs overrides the project's compile concurrency when positive.
	Jobs int
	// NoInstall skips installation and, since it runs installed binaries, smoke testing.
	NoInstall bool
	// NoSmoke skips smoke testing.
	NoSmoke bool
	// Previous is the record of the last run, used to remove stale install links.
	Previous *domain.BuildRecord
}

// Pipeline owns the stage components.
type Pipeline struct {
	patcher   *patcher.Patcher
	compiler  *compiler.Driver
	linker    *linker.Linker
	verifier  *verifier.Verifier
	installer *installer.Installer
	smoke     *smoke.Tester
	registry  *manifest.Registry

	tracer   ports.Tracer
	recorder ports.Recorder
	logger   ports.Logger
	now      func() time.Time
}

// New creates a Pipeline using the built-in manifest registry.
func New(
	executor ports.Executor,
	resolver ports.SourceResolver,
	hasher ports.Hasher,
	tracer ports.Tracer,
	recorder ports.Recorder,
	logger ports.Logger,
) *Pipeline {
	return &Pipeline{
		patcher:   patcher.New(logger),
		compiler:  compiler.New(executor, resolver, logger),
		linker:    linker.New(executor, logger),
		verifier:  verifier.New(executor, hasher, logger),
		installer: installer.New(logger),
		smoke:     smoke.New(executor, logger),
		registry:  manifest.Default(),
		tracer:    tracer,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Registry returns the built-in manifest registry.
func (p *Pipeline) Registry() *manifest.Registry {
	return p.registry
}

// run carries the state of one pipeline execution.
type run struct {
	*Pipeline
	project *domain.Project
	opts    Options
	report  *domain.Report
	cfg     *domain.BuildConfiguration

	installed bool
}

// Run executes every stage. The returned report is never nil and its State is DONE or FAILED.
// A fatal error moves the pipeline to FAILED and is returned with the stage it occurred in.
func (p *Pipeline) Run(ctx context.Context, project *domain.Project, opts Options) (*domain.Report, error) {
	r := &run{Pipeline: p, project: project, opts: opts, report: domain.NewReport(p.now())}

	if opts.Jobs > 0 {
		scoped := *project
		scoped.Compile.Jobs = opts.Jobs
		r.project = &scoped
	}

	err := r.execute(ctx)
	r.keepPreviousLinks()
	r.finish(err)
	return r.report, err
}

func (r *run) execute(ctx context.Context) error {
	registry := r.registry.WithOverrides(r.project.Link.Manifests)
	manifests, err := r.plan(registry)
	if err != nil {
		return r.fail("plan", err)
	}

	names := make([]string, len(manifests))
	for i, m := range manifests {
		names[i] = m.Target
	}
	r.tracer.EmitPlan(ctx, Stages, names)
	r.logger.Info(fmt.Sprintf("manifest registry %s, %d target(s)", registry.Version(), len(manifests)))

	steps := []struct {
		stage string
		next  domain.PipelineState
		fn    func(context.Context) error
	}{
		{StageConfigure, domain.StateConfigured, r.configure},
		{StageCompile, domain.StateCompiled, r.compile},
		{StageLink, domain.StateLinked, func(ctx context.Context) error { return r.link(ctx, manifests) }},
		{StageVerify, domain.StateVerified, r.verify},
		{StageInstall, domain.StateInstalled, r.install},
		{StageSmoke, domain.StateSmokeTested, r.smokeTest},
	}

	for _, step := range steps {
		if err := r.stage(ctx, step.stage, step.fn); err != nil {
			return r.fail(step.stage, err)
		}
		if err := r.advance(step.next); err != nil {
			return err
		}
	}

	return r.advance(domain.StateDone)
}

// plan resolves the manifest of every requested target before any work is done.
func (r *run) plan(registry *manifest.Registry) ([]domain.ObjectManifest, error) {
	targets := r.opts.Targets
	if len(targets) == 0 {
		targets = r.project.Link.Targets
	}

	manifests := make([]domain.ObjectManifest, 0, len(targets))
	for _, t := range targets {
		m, err := registry.Resolve(t)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// stage runs fn inside a span and records its duration.
func (r *run) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	r.recorder.ObserveStage(name, time.Since(start))

	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (r *run) configure(_ context.Context) error {
	cfg, err := r.patcher.Configure(r.project)
	if err != nil {
		return err
	}
	r.cfg = cfg
	r.report.Config = cfg
	return nil
}

func (r *run) compile(ctx context.Context) error {
	report, err := r.compiler.Run(ctx, r.project, r.cfg)
	if report != nil {
		r.report.Compile = report
		for _, res := range report.Results {
			if res.Status == domain.StatusFailed {
				r.report.Warn(domain.NewWarning(domain.WarnCompile, res.Unit.ID, "%v", res.Err))
			}
		}
		r.recorder.AddUnits(string(domain.StatusCompiled), report.Compiled())
		r.recorder.AddUnits(string(domain.StatusFailed), report.Failed())
	}
	return err
}

func (r *run) link(ctx context.Context, manifests []domain.ObjectManifest) error {
	for _, m := range manifests {
		target, binary, err := r.linker.Link(ctx, r.project, r.cfg, r.report.Compile, m)
		r.report.Targets = append(r.report.Targets, target)
		r.recorder.IncTarget(string(target.State))
		if err != nil {
			return err
		}
		r.report.Binaries = append(r.report.Binaries, binary)
	}
	return nil
}

func (r *run) verify(ctx context.Context) error {
	for _, w := range r.verifier.Verify(ctx, r.project, r.report.Binaries) {
		r.report.Warn(w)
	}
	return nil
}

func (r *run) install(_ context.Context) error {
	if r.opts.NoInstall {
		r.logger.Info("installation skipped")
		return nil
	}

	var previous []domain.InstallLink
	if r.opts.Previous != nil {
		previous = r.opts.Previous.Links
	}

	links, warnings := r.installer.Install(r.project, r.report.Binaries, previous)
	r.report.Links = links
	r.installed = true
	for _, w := range warnings {
		r.report.Warn(w)
	}
	return nil
}

// keepPreviousLinks carries the recorded links forward when this run never reached the
// installer, so the next installing run can still remove them once they are stale.
func (r *run) keepPreviousLinks() {
	if r.installed || r.opts.Previous == nil {
		return
	}
	r.report.Links = r.opts.Previous.Links
}

func (r *run) smokeTest(ctx context.Context) error {
	if r.opts.NoSmoke || r.opts.NoInstall {
		r.logger.Info("smoke tests skipped")
		return nil
	}
	for _, w := range r.smoke.Run(ctx, r.project, r.report.Links) {
		r.report.Warn(w)
	}
	return nil
}

func (r *run) advance(next domain.PipelineState) error {
	state, err := r.report.State.Transition(next)
	if err != nil {
		return err
	}
	r.report.State = state
	return nil
}

// fail moves the pipeline to FAILED and tags err with the stage.
func (r *run) fail(stage string, err error) error {
	if terr := r.advance(domain.StateFailed); terr != nil {
		err = errors.Join(err, terr)
	}
	return zerr.With(err, "stage", stage)
}

func (r *run) finish(err error) {
	for _, w := range r.report.Warnings {
		r.recorder.IncWarning(string(w.Kind))
	}

	outcome := "done"
	if err != nil {
		outcome = "failed"
	}
	r.recorder.IncRun(outcome)
}
