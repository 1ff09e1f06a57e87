package config

import (
	"runtime"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
)

// Defaults for a TPC-DS style tree. Every field can be overridden in kiln.yaml.
const (
	DefaultTemplate    = "Makefile.suite"
	DefaultOutput      = "Makefile"
	DefaultDescribeArg = "-help"
	DefaultTimeout     = "10s"
	DefaultInstallDir  = "/usr/local/bin"
	DefaultMinCompiled = 1
)

// DefaultTargets lists the binaries of the toolkit in link order.
var DefaultTargets = []string{"dsdgen", "dsqgen", "distcomp", "mkheader"}

// DefaultSources are the translation unit patterns relative to the source tree.
var DefaultSources = []string{"*.c", "*.y", "*.l"}

// hostProfile holds the values that differ between supported operating systems.
type hostProfile struct {
	tag       string
	compiler  string
	cflags    string
	tolerance string
}

var hostProfiles = map[string]hostProfile{
	"linux": {
		tag:       "LINUX",
		compiler:  "gcc",
		cflags:    "-g -Wall -fcommon -D_FILE_OFFSET_BITS=64 -D_LARGEFILE_SOURCE",
		tolerance: "-Wl,--allow-multiple-definition",
	},
	"darwin": {
		tag:       "MACOS",
		compiler:  "clang",
		cflags:    "-g -Wall -fcommon -Wno-implicit-int -Wno-implicit-function-declaration",
		tolerance: "-Wl,-multiply_defined,suppress",
	},
}

// profileFor returns the profile of goos, falling back to Linux.
func profileFor(goos string) hostProfile {
	if p, ok := hostProfiles[goos]; ok {
		return p
	}
	return hostProfiles["linux"]
}

// defaultRules returns the override rules for the host's template block.
func defaultRules(goos string) []domain.PatchRule {
	p := profileFor(goos)
	return []domain.PatchRule{
		{Key: "OS", Value: p.tag, Role: domain.RoleOS},
		{Key: p.tag + "_CC", Value: p.compiler, Role: domain.RoleCompiler},
		{Key: p.tag + "_CFLAGS", Value: p.cflags, Role: domain.RoleCFlags},
		{Key: p.tag + "_LIBS", Value: "-lm", Role: domain.RoleLDFlags},
		{Key: p.tag + "_YACC", Value: "yacc", Role: domain.RoleYacc},
		{Key: "LEX", Value: "lex", Role: domain.RoleLex},
	}
}

func defaultPrerequisites(output string) []domain.Prerequisite {
	return []domain.Prerequisite{
		{Name: "checksum", Command: []string{"make", "-f", output, "checksum"}},
	}
}

func defaultSmoke() []domain.SmokeSpec {
	return []domain.SmokeSpec{
		{Target: "dsdgen", Args: []string{"-scale", "1", "-force"}, Artifacts: []string{"*.dat"}},
		{
			Target:    "dsqgen",
			Args:      []string{"-scale", "1", "-directory", "query_templates", "-input", "query_templates/templates.lst"},
			Artifacts: []string{"query_*.sql"},
		},
	}
}

func hostGOOS() string {
	return strings.ToLower(runtime.GOOS)
}
