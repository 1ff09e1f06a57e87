package config

// Kilnfile represents the structure of the kiln.yaml configuration file.
type Kilnfile struct {
	Version       string            `yaml:"version"`
	Root          string            `yaml:"root"`
	BuildLog      string            `yaml:"build_log"`
	Configure     ConfigureDTO      `yaml:"configure"`
	Prerequisites []PrerequisiteDTO `yaml:"prerequisites"`
	Compile       CompileDTO        `yaml:"compile"`
	Link          LinkDTO           `yaml:"link"`
	Verify        VerifyDTO         `yaml:"verify"`
	Install       InstallDTO        `yaml:"install"`
	Smoke         []SmokeDTO        `yaml:"smoke"`
}

// ConfigureDTO represents the configuration patcher section.
type ConfigureDTO struct {
	Template      string    `yaml:"template"`
	Output        string    `yaml:"output"`
	CompatHeaders *bool     `yaml:"compat_headers"`
	Rules         []RuleDTO `yaml:"rules"`
}

// RuleDTO represents a single KEY = value override.
type RuleDTO struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	Role  string `yaml:"role"`
}

// PrerequisiteDTO represents a utility built before tolerant compilation.
type PrerequisiteDTO struct {
	Name string   `yaml:"name"`
	Cmd  []string `yaml:"cmd"`
}

// CompileDTO represents the compile section.
type CompileDTO struct {
	Sources     []string `yaml:"sources"`
	Exclude     []string `yaml:"exclude"`
	Jobs        int      `yaml:"jobs"`
	MinCompiled *int     `yaml:"min_compiled"`
}

// LinkDTO represents the link section.
type LinkDTO struct {
	Targets       []string            `yaml:"targets"`
	ToleranceFlag string              `yaml:"tolerance_flag"`
	Manifests     map[string][]string `yaml:"manifests"`
}

// VerifyDTO represents the verification section.
type VerifyDTO struct {
	DescribeArg string `yaml:"describe_arg"`
	Timeout     string `yaml:"timeout"`
}

// InstallDTO represents the install section.
type InstallDTO struct {
	Dir string `yaml:"dir"`
}

// SmokeDTO represents the smoke invocation of one target.
type SmokeDTO struct {
	Target    string   `yaml:"target"`
	Args      []string `yaml:"args"`
	Artifacts []string `yaml:"artifacts"`
	WorkDir   string   `yaml:"workdir"`
}
