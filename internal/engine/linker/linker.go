// Package linker links targets from their ordered manifests with duplicate symbols tolerated.
package linker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// Linker invokes the compiler driver as linker.
type Linker struct {
	executor ports.Executor
	logger   ports.Logger
}

// New creates a new Linker.
func New(executor ports.Executor, logger ports.Logger) *Linker {
	return &Linker{
		executor: executor,
		logger:   logger,
	}
}

// Link links one target. Every unit of the manifest must have compiled; a missing unit is
// never skipped. The returned target is always non-nil and carries the final state.
func (l *Linker) Link(
	ctx context.Context,
	project *domain.Project,
	cfg *domain.BuildConfiguration,
	compiled *domain.CompileReport,
	manifest domain.ObjectManifest,
) (*domain.Target, *domain.Binary, error) {
	target := &domain.Target{
		Name:      manifest.Target,
		Manifest:  manifest,
		LinkFlags: cfg.LinkFlags(),
		State:     domain.TargetNotLinked,
	}

	objects, err := objectsOf(compiled, manifest)
	if err != nil {
		target.State = domain.TargetLinkFailed
		return target, nil, zerr.With(err, "target", target.Name)
	}

	binary := project.BinaryPath(target.Name)
	if err := os.Remove(binary); err != nil && !errors.Is(err, fs.ErrNotExist) {
		target.State = domain.TargetLinkFailed
		return target, nil, zerr.With(zerr.Wrap(domain.ErrLink, "failed to remove previous binary"), "path", binary)
	}

	cmd := domain.NewCommand(project.SourceDir, Command(cfg, project.Link.ToleranceFlag, binary, objects)...)
	l.logger.Info(fmt.Sprintf("linking %s from %d object(s)", target.Name, len(objects)))

	if err := l.executor.Execute(ctx, cmd, nil, nil); err != nil {
		target.State = domain.TargetLinkFailed
		wrapped := zerr.With(zerr.Wrap(domain.ErrLink, "linker failed for "+target.Name), "cause", err.Error())
		return target, nil, zerr.With(zerr.With(wrapped, "target", target.Name), "command", cmd.String())
	}

	if err := os.Chmod(binary, domain.ExecPerm); err != nil {
		target.State = domain.TargetLinkFailed
		wrapped := zerr.With(zerr.Wrap(domain.ErrLink, "linker produced no binary for "+target.Name), "cause", err.Error())
		return target, nil, zerr.With(wrapped, "path", binary)
	}

	target.State = domain.TargetLinked
	return target, &domain.Binary{
		Target:     target.Name,
		Path:       binary,
		Executable: true,
		State:      domain.BinaryUnverified,
	}, nil
}

// Command returns the link command line: the compiler, the output, the tolerance flag,
// the objects in manifest order and finally the link flags.
func Command(cfg *domain.BuildConfiguration, toleranceFlag, binary string, objects []string) []string {
	argv := cfg.CompilerCommand()
	if len(argv) == 0 {
		argv = []string{"cc"}
	}
	argv = append(argv, "-o", binary)
	argv = append(argv, strings.Fields(toleranceFlag)...)
	argv = append(argv, objects...)
	return append(argv, cfg.LinkFlags()...)
}

// objectsOf maps the manifest onto compiled objects, preserving order.
func objectsOf(compiled *domain.CompileReport, manifest domain.ObjectManifest) ([]string, error) {
	objects := make([]string, 0, len(manifest.Units))
	for _, id := range manifest.Units {
		unit, ok := compiled.Unit(id)
		if !ok || compiled.Status(id) != domain.StatusCompiled {
			status := domain.StatusPending
			if ok {
				status = compiled.Status(id)
			}
			err := zerr.Wrap(domain.ErrMissingUnit, fmt.Sprintf("unit %s was not compiled", id))
			return nil, zerr.With(zerr.With(err, "unit", id), "status", status)
		}
		if _, err := os.Stat(unit.Object); err != nil {
			missing := zerr.Wrap(domain.ErrMissingUnit, fmt.Sprintf("object of unit %s does not exist", id))
			return nil, zerr.With(zerr.With(missing, "unit", id), "path", unit.Object)
		}
		objects = append(objects, unit.Object)
	}
	return objects, nil
}
