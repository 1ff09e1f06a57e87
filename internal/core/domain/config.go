package domain

import (
	"slices"
	"strings"
)

// RuleRole names which BuildConfiguration field a patch rule populates.
type RuleRole string

const (
	// RoleNone marks a rule that only patches the template.
	RoleNone RuleRole = ""
	// RoleOS marks the operating-system tag.
	RoleOS RuleRole = "os"
	// RoleCompiler marks the compiler executable.
	RoleCompiler RuleRole = "compiler"
	// RoleCFlags marks the compilation flags.
	RoleCFlags RuleRole = "cflags"
	// RoleLDFlags marks the link flags.
	RoleLDFlags RuleRole = "ldflags"
	// RoleLex marks the lexer generator.
	RoleLex RuleRole = "lex"
	// RoleYacc marks the parser generator.
	RoleYacc RuleRole = "yacc"
)

// Valid reports whether r is a known role.
func (r RuleRole) Valid() bool {
	switch r {
	case RoleNone, RoleOS, RoleCompiler, RoleCFlags, RoleLDFlags, RoleLex, RoleYacc:
		return true
	default:
		return false
	}
}

// PatchRule replaces the value of one KEY = value assignment in the template.
type PatchRule struct {
	Key   string
	Value string
	Role  RuleRole
}

// BuildConfiguration is the concrete, OS-specific configuration produced by the patcher.
// It is created once per run and must not be modified afterwards.
type BuildConfiguration struct {
	OS       string
	Compiler string
	CFlags   string
	LDFlags  string
	Lex      string
	Yacc     string

	// Values holds every applied override keyed by template key.
	Values map[string]string

	// Content is the patched template.
	Content []byte
}

// CompilerCommand returns the compiler split into executable and leading arguments.
func (c *BuildConfiguration) CompilerCommand() []string {
	return strings.Fields(c.Compiler)
}

// CompileFlags returns the compilation flags as separate arguments, led by the
// -D<OS> platform define the legacy sources select their code paths by.
func (c *BuildConfiguration) CompileFlags() []string {
	flags := strings.Fields(c.CFlags)
	if c.OS == "" {
		return flags
	}
	define := "-D" + c.OS
	if slices.Contains(flags, define) {
		return flags
	}
	return append([]string{define}, flags...)
}

// LinkFlags returns the link flags as separate arguments.
func (c *BuildConfiguration) LinkFlags() []string {
	return strings.Fields(c.LDFlags)
}

// LexCommand returns the lexer generator command.
func (c *BuildConfiguration) LexCommand() []string {
	return strings.Fields(c.Lex)
}

// YaccCommand returns the parser generator command.
func (c *BuildConfiguration) YaccCommand() []string {
	return strings.Fields(c.Yacc)
}
