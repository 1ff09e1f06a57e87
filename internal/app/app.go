// Package app implements the application layer for kiln.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/kiln/internal/adapters/telemetry"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/compiler"
	"go.trai.ch/kiln/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	pipeline     *pipeline.Pipeline
	resolver     ports.SourceResolver
	store        ports.BuildRecordStore
	recorder     ports.Recorder
	buildLog     ports.BuildLog
	renderer     ports.Renderer
	logger       ports.Logger
	now          func() time.Time
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	p *pipeline.Pipeline,
	resolver ports.SourceResolver,
	store ports.BuildRecordStore,
	recorder ports.Recorder,
	buildLog ports.BuildLog,
	renderer ports.Renderer,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		pipeline:     p,
		resolver:     resolver,
		store:        store,
		recorder:     recorder,
		buildLog:     buildLog,
		renderer:     renderer,
		logger:       log,
		now:          time.Now,
	}
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// ConfigPath is a kiln.yaml file or a directory to start discovery from.
	ConfigPath string
	Jobs       int
	NoInstall  bool
	NoSmoke    bool
}

// Run loads the project and drives the build pipeline for targets, or for the project's
// targets when none are given. Warnings never fail the run.
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) error {
	// 1. Load the project
	project, err := a.configLoader.Load(configPathOr(opts.ConfigPath))
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	// 2. Open the build log
	if err := a.buildLog.Open(project.BuildLog); err != nil {
		return err
	}
	defer func() {
		_ = a.buildLog.Close()
	}()

	// 3. Route stage spans to the renderer
	tp := setupOTel(telemetry.NewBridge(a.renderer))
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()

	if err := a.renderer.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = a.renderer.Stop()
	}()

	// 4. Load the previous record for stale link removal
	previous, err := a.store.Get(project.Root)
	if err != nil {
		a.logger.Warn(fmt.Sprintf("ignoring unreadable build record: %v", err))
		previous = nil
	}

	// 5. Run the pipeline
	report, runErr := a.pipeline.Run(ctx, project, pipeline.Options{
		Targets:   targetNames,
		Jobs:      opts.Jobs,
		NoInstall: opts.NoInstall,
		NoSmoke:   opts.NoSmoke,
		Previous:  previous,
	})

	// 6. Persist the outcome
	if err := a.store.Put(project.Root, report.Record(a.now())); err != nil {
		a.logger.Warn(fmt.Sprintf("build record not saved: %v", err))
	}
	if err := a.recorder.Export(domain.DefaultMetricsPath(project.Root)); err != nil {
		a.logger.Warn(fmt.Sprintf("metrics not exported: %v", err))
	}

	a.summarize(report)

	if runErr != nil {
		a.logger.Error(runErr)
		return errors.Join(domain.ErrBuildExecutionFailed, runErr)
	}
	return nil
}

func (a *App) summarize(report *domain.Report) {
	for _, w := range report.Warnings {
		a.logger.Warn(w.String())
	}

	compiled, failed := 0, 0
	if report.Compile != nil {
		compiled, failed = report.Compile.Compiled(), report.Compile.Failed()
	}

	var linked []string
	for _, t := range report.Targets {
		if t.State == domain.TargetLinked {
			linked = append(linked, t.Name)
		}
	}

	a.logger.Info(fmt.Sprintf("run %s finished %s: %d unit(s) compiled, %d failed, linked [%s], %d warning(s)",
		report.RunID, report.State, compiled, failed, strings.Join(linked, ", "), len(report.Warnings)))
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	ConfigPath string
}

// Clean removes objects, generated sources, linked and prerequisite binaries and the
// state directory. Install links are left alone.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	project, err := a.configLoader.Load(configPathOr(options.ConfigPath))
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error

	// Helper to remove a path and log the action
	remove := func(path string, name string) {
		if _, err := os.Lstat(path); err != nil {
			return
		}
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	ids, err := a.resolver.ResolveSources(project.SourceDir, project.Compile.Sources, project.Compile.Exclude)
	if err != nil {
		return err
	}
	units := make([]domain.TranslationUnit, len(ids))
	for i, id := range ids {
		units[i] = domain.NewTranslationUnit(project.SourceDir, id)
	}
	if err := compiler.RemoveOutputs(units); err != nil {
		errs = errors.Join(errs, err)
	} else {
		a.logger.Info(fmt.Sprintf("removed outputs of %d unit(s)", len(units)))
	}

	for _, target := range project.Link.Targets {
		remove(project.BinaryPath(target), target)
	}
	for _, pre := range project.Prerequisites {
		remove(filepath.Join(project.SourceDir, pre.Name), pre.Name)
	}
	remove(domain.DefaultStatePath(project.Root), "state directory")

	return errs
}

// Manifest prints the ordered units of target, or of every known target when target is empty.
// Manifest overrides from kiln.yaml are applied when a configuration can be found.
func (a *App) Manifest(_ context.Context, target string, configPath string, w io.Writer) error {
	registry := a.pipeline.Registry()

	project, err := a.configLoader.Load(configPathOr(configPath))
	switch {
	case err == nil:
		registry = registry.WithOverrides(project.Link.Manifests)
	case !errors.Is(err, domain.ErrConfigNotFound):
		return zerr.Wrap(err, "failed to load configuration")
	}

	targets := registry.Targets()
	if target != "" {
		targets = []string{target}
	}

	_, _ = fmt.Fprintf(w, "manifest registry %s\n", registry.Version())
	for _, name := range targets {
		m, err := registry.Resolve(name)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "\n%s (%d units)\n", m.Target, len(m.Units))
		for i, id := range m.Units {
			_, _ = fmt.Fprintf(w, "  %3d  %s\n", i+1, id)
		}
	}
	return nil
}

func configPathOr(path string) string {
	if path == "" {
		return "."
	}
	return path
}

// setupOTel configures the OpenTelemetry SDK with the renderer bridge.
func setupOTel(bridge *telemetry.Bridge) *sdktrace.TracerProvider {
	// Create a new TracerProvider with the bridge as a SpanProcessor.
	// This ensures that all started spans are reported to the renderer.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bridge),
	)

	// Register it as the global provider.
	otel.SetTracerProvider(tp)
	return tp
}
