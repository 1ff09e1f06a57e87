// Package config provides the configuration loader for kiln.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the only kiln.yaml schema version understood by this loader.
const SupportedVersion = "1"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	// GOOS selects the default host profile. Empty means the running host.
	GOOS string
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load finds kiln.yaml starting at cwd and returns the validated project.
// If cwd names a file, that file is loaded directly.
func (l *Loader) Load(cwd string) (*domain.Project, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var kilnfile Kilnfile
	if err := readAndUnmarshalYAML(configPath, &kilnfile); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	return l.buildProject(configPath, &kilnfile)
}

// DiscoverRoot returns the directory containing kiln.yaml.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	configPath, err := l.findConfiguration(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Dir(configPath), nil
}

func (l *Loader) findConfiguration(cwd string) (string, error) {
	if info, err := os.Stat(cwd); err == nil && !info.IsDir() {
		return filepath.Clean(cwd), nil
	}

	currentDir := cwd
	for {
		configPath := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "searched every parent directory"), "cwd", cwd)
}

func (l *Loader) buildProject(configPath string, kf *Kilnfile) (*domain.Project, error) {
	if kf.Version != "" && kf.Version != SupportedVersion {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnsupportedVersion, "unknown kiln.yaml version"), "version", kf.Version)
	}

	goos := l.GOOS
	if goos == "" {
		goos = hostGOOS()
	}

	root := filepath.Dir(configPath)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	p := &domain.Project{
		Root:      root,
		SourceDir: resolveRoot(filepath.Join(root, domain.ConfigFileName), kf.Root),
		BuildLog:  resolvePath(root, valueOr(kf.BuildLog, domain.DefaultBuildLogName)),
	}

	if err := l.applyConfigure(p, &kf.Configure, goos); err != nil {
		return nil, err
	}
	l.applyPrerequisites(p, kf.Prerequisites)
	if err := applyCompile(p, &kf.Compile); err != nil {
		return nil, err
	}
	applyLink(p, &kf.Link, goos)
	if err := applyVerify(p, &kf.Verify); err != nil {
		return nil, err
	}
	p.Install.Dir = resolvePath(root, valueOr(kf.Install.Dir, DefaultInstallDir))
	l.applySmoke(p, kf.Smoke)

	return p, nil
}

func (l *Loader) applyConfigure(p *domain.Project, dto *ConfigureDTO, goos string) error {
	p.Configure.Template = valueOr(dto.Template, DefaultTemplate)
	p.Configure.Output = valueOr(dto.Output, DefaultOutput)
	p.Configure.CompatHeaders = dto.CompatHeaders == nil || *dto.CompatHeaders

	if dto.Rules == nil {
		p.Configure.Rules = defaultRules(goos)
		return nil
	}

	seen := make(map[string]bool, len(dto.Rules))
	for i, r := range dto.Rules {
		role := domain.RuleRole(r.Role)
		if r.Key == "" {
			return zerr.With(zerr.Wrap(domain.ErrInvalidRule, "rule has no key"), "index", i)
		}
		if !role.Valid() {
			err := zerr.With(zerr.Wrap(domain.ErrInvalidRule, "unknown rule role"), "role", r.Role)
			return zerr.With(err, "key", r.Key)
		}
		if seen[r.Key] {
			l.Logger.Warn(fmt.Sprintf("rule for %s is defined more than once; the last value wins", r.Key))
		}
		seen[r.Key] = true
		p.Configure.Rules = append(p.Configure.Rules, domain.PatchRule{Key: r.Key, Value: r.Value, Role: role})
	}
	return nil
}

func (l *Loader) applyPrerequisites(p *domain.Project, dtos []PrerequisiteDTO) {
	if dtos == nil {
		p.Prerequisites = defaultPrerequisites(p.Configure.Output)
		return
	}

	p.Prerequisites = make([]domain.Prerequisite, 0, len(dtos))
	for _, dto := range dtos {
		cmd := dto.Cmd
		if len(cmd) == 0 {
			cmd = []string{"make", "-f", p.Configure.Output, dto.Name}
		}
		p.Prerequisites = append(p.Prerequisites, domain.Prerequisite{Name: dto.Name, Command: cmd})
	}
}

func applyCompile(p *domain.Project, dto *CompileDTO) error {
	if dto.Jobs < 0 {
		return zerr.With(zerr.Wrap(domain.ErrConfiguration, "compile.jobs must not be negative"), "jobs", dto.Jobs)
	}

	p.Compile.Sources = canonicalizeStrings(dto.Sources)
	if len(p.Compile.Sources) == 0 {
		p.Compile.Sources = slices.Clone(DefaultSources)
	}
	p.Compile.Exclude = canonicalizeStrings(dto.Exclude)
	p.Compile.Jobs = dto.Jobs

	p.Compile.MinCompiled = DefaultMinCompiled
	if dto.MinCompiled != nil {
		if *dto.MinCompiled < 1 {
			return zerr.With(
				zerr.Wrap(domain.ErrConfiguration, "compile.min_compiled must be at least 1"),
				"min_compiled", *dto.MinCompiled,
			)
		}
		p.Compile.MinCompiled = *dto.MinCompiled
	}
	return nil
}

func applyLink(p *domain.Project, dto *LinkDTO, goos string) {
	p.Link.Targets = dto.Targets
	if len(p.Link.Targets) == 0 {
		p.Link.Targets = slices.Clone(DefaultTargets)
	}
	p.Link.ToleranceFlag = valueOr(dto.ToleranceFlag, profileFor(goos).tolerance)
	p.Link.Manifests = dto.Manifests
}

func applyVerify(p *domain.Project, dto *VerifyDTO) error {
	p.Verify.DescribeArg = valueOr(dto.DescribeArg, DefaultDescribeArg)

	raw := valueOr(dto.Timeout, DefaultTimeout)
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrInvalidDuration, "verify.timeout"), "value", raw)
	}
	if timeout <= 0 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidDuration, "verify.timeout must be positive"), "value", raw)
	}
	p.Verify.Timeout = timeout
	return nil
}

func (l *Loader) applySmoke(p *domain.Project, dtos []SmokeDTO) {
	if dtos == nil {
		p.Smoke = defaultSmoke()
		return
	}

	p.Smoke = make([]domain.SmokeSpec, 0, len(dtos))
	for _, dto := range dtos {
		if !slices.Contains(p.Link.Targets, dto.Target) {
			l.Logger.Warn(fmt.Sprintf("smoke entry for %q has no effect: not a link target", dto.Target))
			continue
		}
		workDir := ""
		if dto.WorkDir != "" {
			workDir = resolvePath(p.SourceDir, dto.WorkDir)
		}
		p.Smoke = append(p.Smoke, domain.SmokeSpec{
			Target:    dto.Target,
			Args:      dto.Args,
			Artifacts: dto.Artifacts,
			WorkDir:   workDir,
		})
	}
}

func canonicalizeStrings(strs []string) []string {
	if len(strs) == 0 {
		return nil
	}

	// Sort strings
	sorted := make([]string, len(strs))
	copy(sorted, strs)
	slices.Sort(sorted)

	return slices.Compact(sorted)
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

func resolvePath(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is validated by caller
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, "cannot read "+filepath.Base(configPath)), "cause", err.Error())
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.With(zerr.Wrap(domain.ErrConfigParseFailed, "invalid YAML in "+filepath.Base(configPath)), "cause", parseErr.Error())
	}

	return nil
}
