// Package smoke runs installed binaries at minimal scale and checks they produce output files.
package smoke

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Tester runs smoke invocations. It never aborts the pipeline.
type Tester struct {
	executor ports.Executor
	logger   ports.Logger
}

// New creates a new Tester.
func New(executor ports.Executor, logger ports.Logger) *Tester {
	return &Tester{
		executor: executor,
		logger:   logger,
	}
}

// Run smoke tests every installed link that has a smoke specification.
func (t *Tester) Run(ctx context.Context, project *domain.Project, links []domain.InstallLink) []domain.Warning {
	var warnings []domain.Warning
	for _, link := range links {
		spec, ok := project.SmokeFor(link.Target)
		if !ok {
			continue
		}
		if w, failed := t.run(ctx, project, link, spec); failed {
			warnings = append(warnings, w)
		}
	}
	return warnings
}

func (t *Tester) run(ctx context.Context, project *domain.Project, link domain.InstallLink, spec domain.SmokeSpec) (domain.Warning, bool) {
	dir := spec.WorkDir
	if dir == "" {
		dir = project.SourceDir
	}

	before, err := artifacts(dir, spec.Artifacts)
	if err != nil {
		return domain.NewWarning(domain.WarnSmokeTest, link.Target, "%v", err), true
	}

	argv := append([]string{link.Path}, spec.Args...)
	cmd := domain.NewCommand(dir, argv...)
	t.logger.Info(fmt.Sprintf("smoke testing %s", cmd))

	if err := t.executor.Execute(ctx, cmd, nil, nil); err != nil {
		return domain.NewWarning(domain.WarnSmokeTest, link.Target, "smoke invocation failed: %v", err), true
	}

	after, err := artifacts(dir, spec.Artifacts)
	if err != nil {
		return domain.NewWarning(domain.WarnSmokeTest, link.Target, "%v", err), true
	}

	produced := make([]string, 0, len(after))
	for path, stamp := range after {
		if prev, ok := before[path]; !ok || prev != stamp {
			produced = append(produced, path)
		}
	}
	slices.Sort(produced)
	if len(produced) == 0 {
		return domain.NewWarning(domain.WarnSmokeTest, link.Target,
			"no artifacts matching %s in %s", strings.Join(spec.Artifacts, ", "), dir), true
	}

	for _, path := range produced {
		if err := os.Remove(path); err != nil {
			t.logger.Warn(fmt.Sprintf("cannot remove smoke artifact %s: %v", path, err))
		}
	}
	t.logger.Info(fmt.Sprintf("smoke test of %s produced %d artifact(s)", link.Target, len(produced)))
	return domain.Warning{}, false
}

// stamp identifies one version of an artifact. A rewritten file gets a new stamp.
type stamp struct {
	modTime time.Time
	size    int64
}

// artifacts returns the regular files in dir matching any of patterns.
func artifacts(dir string, patterns []string) (map[string]stamp, error) {
	out := make(map[string]stamp)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			wrapped := zerr.With(zerr.Wrap(domain.ErrGlobFailed, "invalid artifact pattern"), "pattern", pattern)
			return nil, zerr.With(wrapped, "cause", err.Error())
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				out[m] = stamp{modTime: info.ModTime(), size: info.Size()}
			}
		}
	}
	return out, nil
}
