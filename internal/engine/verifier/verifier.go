// Package verifier checks that linked binaries exist, are executable and start.
package verifier

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// Verifier runs each binary with its describe argument and records the outcome.
type Verifier struct {
	executor ports.Executor
	hasher   ports.Hasher
	logger   ports.Logger
}

// New creates a new Verifier.
func New(executor ports.Executor, hasher ports.Hasher, logger ports.Logger) *Verifier {
	return &Verifier{
		executor: executor,
		hasher:   hasher,
		logger:   logger,
	}
}

// Verify updates the state of every binary in place and returns the warnings it raised.
// Binaries that do not exist are reported together in a single warning.
func (v *Verifier) Verify(ctx context.Context, project *domain.Project, binaries []*domain.Binary) []domain.Warning {
	var warnings []domain.Warning
	var missing []string

	for _, b := range binaries {
		info, err := os.Stat(b.Path)
		if errors.Is(err, fs.ErrNotExist) {
			b.State = domain.BinaryMissing
			b.Executable = false
			missing = append(missing, b.Target)
			continue
		}
		if err != nil {
			b.State = domain.BinaryBroken
			warnings = append(warnings, domain.NewWarning(domain.WarnVerification, b.Target, "cannot stat %s: %v", b.Path, err))
			continue
		}

		if info.Mode().Perm()&0o111 == 0 {
			if err := os.Chmod(b.Path, domain.ExecPerm); err != nil {
				b.State = domain.BinaryBroken
				b.Executable = false
				warnings = append(warnings, domain.NewWarning(domain.WarnVerification, b.Target, "cannot restore executable bit: %v", err))
				continue
			}
			v.logger.Info(fmt.Sprintf("restored executable bit on %s", b.Path))
		}
		b.Executable = true

		if w, ok := v.describe(ctx, project, b); !ok {
			warnings = append(warnings, w)
		}
		v.digest(b)
	}

	if len(missing) > 0 {
		warnings = append(warnings, domain.NewWarning(domain.WarnVerification, "",
			"%d binary(ies) missing after link: %s", len(missing), strings.Join(missing, ", ")))
	}

	return warnings
}

// describe runs the binary and keeps the first non-empty line it prints.
func (v *Verifier) describe(ctx context.Context, project *domain.Project, b *domain.Binary) (domain.Warning, bool) {
	if project.Verify.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, project.Verify.Timeout)
		defer cancel()
	}

	argv := []string{b.Path}
	if project.Verify.DescribeArg != "" {
		argv = append(argv, project.Verify.DescribeArg)
	}

	var stdout bytes.Buffer
	runErr := v.executor.Execute(ctx, domain.NewCommand(project.SourceDir, argv...), &stdout, nil)

	line := firstLine(stdout.Bytes())
	if line == "" {
		b.State = domain.BinaryBroken
		if runErr != nil {
			return domain.NewWarning(domain.WarnVerification, b.Target, "describe invocation failed: %v", runErr), false
		}
		return domain.NewWarning(domain.WarnVerification, b.Target, "describe invocation printed nothing"), false
	}

	if runErr != nil {
		v.logger.Warn(fmt.Sprintf("%s printed its description but exited with: %v", b.Target, runErr))
	}
	b.State = domain.BinaryVerified
	b.Describe = line
	v.logger.Info(fmt.Sprintf("verified %s: %s", b.Target, line))
	return domain.Warning{}, true
}

func (v *Verifier) digest(b *domain.Binary) {
	sum, err := v.hasher.ComputeFileHash(b.Path)
	if err != nil {
		v.logger.Warn(fmt.Sprintf("cannot hash %s: %v", b.Path, err))
		return
	}
	b.Digest = fmt.Sprintf("%016x", sum)
}

func firstLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
