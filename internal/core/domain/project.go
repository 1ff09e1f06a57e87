package domain

import (
	"path/filepath"
	"time"
)

// Project is the validated kiln.yaml of a source tree.
type Project struct {
	// Root is the directory containing kiln.yaml.
	Root string
	// SourceDir is the directory holding the translation units and the template.
	SourceDir string
	// BuildLog is the path of the append-only build log.
	BuildLog string

	Configure     ConfigureSpec
	Prerequisites []Prerequisite
	Compile       CompileSpec
	Link          LinkSpec
	Verify        VerifySpec
	Install       InstallSpec
	Smoke         []SmokeSpec
}

// ConfigureSpec drives the configuration patcher.
type ConfigureSpec struct {
	// Template is the generic template, relative to SourceDir.
	Template string
	// Output is the patched file, relative to SourceDir.
	Output string
	// CompatHeaders enables writing portability shims into SourceDir.
	CompatHeaders bool
	Rules         []PatchRule
}

// TemplatePath returns the absolute template path.
func (p *Project) TemplatePath() string {
	return filepath.Join(p.SourceDir, p.Configure.Template)
}

// OutputPath returns the absolute path of the patched configuration.
func (p *Project) OutputPath() string {
	return filepath.Join(p.SourceDir, p.Configure.Output)
}

// Prerequisite is a utility that must build through the standard toolchain.
type Prerequisite struct {
	Name string
	// Command builds the utility inside SourceDir.
	Command []string
}

// CompileSpec drives the tolerant compiler.
type CompileSpec struct {
	// Sources are glob patterns relative to SourceDir.
	Sources []string
	// Exclude are glob patterns matched against unit ids.
	Exclude []string
	// Jobs caps parallel compilation. Zero means the number of CPUs.
	Jobs int
	// MinCompiled is the number of compiled units below which the stage fails.
	MinCompiled int
}

// LinkSpec drives the linker.
type LinkSpec struct {
	// Targets lists the binaries to link, in link order.
	Targets []string
	// ToleranceFlag makes the linker keep the first definition of a duplicate symbol.
	ToleranceFlag string
	// Manifests overrides or extends the built-in manifest table.
	Manifests map[string][]string
}

// VerifySpec drives the binary verifier.
type VerifySpec struct {
	DescribeArg string
	Timeout     time.Duration
}

// InstallSpec drives the installer.
type InstallSpec struct {
	Dir string
}

// SmokeSpec is the minimal-scale invocation of one target.
type SmokeSpec struct {
	Target string
	Args   []string
	// Artifacts are glob patterns, relative to WorkDir, expected after the run.
	Artifacts []string
	// WorkDir is where the binary runs. Empty means SourceDir.
	WorkDir string
}

// BinaryPath returns the build-tree path of a linked target.
func (p *Project) BinaryPath(target string) string {
	return filepath.Join(p.SourceDir, target)
}

// SmokeFor returns the smoke specification of target.
func (p *Project) SmokeFor(target string) (SmokeSpec, bool) {
	for _, s := range p.Smoke {
		if s.Target == target {
			return s, true
		}
	}
	return SmokeSpec{}, false
}
