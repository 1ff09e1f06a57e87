// Package patcher turns the generic build-configuration template into an OS-specific one.
package patcher

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// ShimFileName is the portability header written for hosts that lack it.
const ShimFileName = "values.h"

// valuesShim maps the legacy values.h constants onto limits.h and float.h.
const valuesShim = `/* values.h replacement for hosts that no longer ship it */
#ifndef VALUES_H
#define VALUES_H

#include <limits.h>
#include <float.h>

#define MAXINT INT_MAX
#define MININT INT_MIN
#define MAXLONG LONG_MAX
#define MINLONG LONG_MIN
#define MAXFLOAT FLT_MAX
#define MINFLOAT FLT_MIN
#define MAXDOUBLE DBL_MAX
#define MINDOUBLE DBL_MIN

#endif /* VALUES_H */
`

// Patcher applies override rules to a configuration template.
type Patcher struct {
	logger ports.Logger
}

// New creates a Patcher.
func New(logger ports.Logger) *Patcher {
	return &Patcher{logger: logger}
}

// Configure patches the project's template, writes the result next to it and
// returns the resulting configuration.
func (p *Patcher) Configure(project *domain.Project) (*domain.BuildConfiguration, error) {
	info, err := os.Stat(project.SourceDir)
	if err != nil || !info.IsDir() {
		return nil, zerr.With(zerr.Wrap(domain.ErrSourceTreeNotFound, "source tree is not a directory"), "path", project.SourceDir)
	}

	templatePath := project.TemplatePath()
	template, err := os.ReadFile(templatePath) //nolint:gosec // path comes from kiln.yaml
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(domain.ErrTemplateNotFound, "template does not exist"), "path", templatePath)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read template"), "path", templatePath)
	}

	cfg, err := Patch(template, project.Configure.Rules)
	if err != nil {
		return nil, zerr.With(err, "path", templatePath)
	}

	outputPath := project.OutputPath()
	if err := os.WriteFile(outputPath, cfg.Content, domain.FilePerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to write patched configuration"), "path", outputPath)
	}
	p.logger.Info(fmt.Sprintf("patched %d key(s) of %s into %s", len(cfg.Values), project.Configure.Template, project.Configure.Output))

	if project.Configure.CompatHeaders {
		written, err := WriteCompatHeaders(project.SourceDir)
		if err != nil {
			return nil, err
		}
		if written {
			p.logger.Info("wrote portability header " + ShimFileName)
		}
	}

	return cfg, nil
}

// Patch replaces the value of the first KEY = value line for every rule, in rule order,
// leaving all other bytes unchanged. Patching its own output with the same rules is a no-op.
func Patch(template []byte, rules []domain.PatchRule) (*domain.BuildConfiguration, error) {
	content := bytes.Clone(template)
	cfg := &domain.BuildConfiguration{Values: make(map[string]string, len(rules))}

	for _, rule := range rules {
		if rule.Key == "" || !rule.Role.Valid() {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidRule, "rule cannot be applied"), "key", rule.Key)
		}

		loc := anchorPattern(rule.Key).FindSubmatchIndex(content)
		if loc == nil {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrAnchorNotFound, fmt.Sprintf("no assignment for %s in template", rule.Key)),
				"key", rule.Key,
			)
		}

		var b bytes.Buffer
		b.Grow(len(content) + len(rule.Value))
		b.Write(content[:loc[0]])
		b.Write(content[loc[2]:loc[3]])
		if rule.Value != "" {
			b.WriteByte(' ')
			b.WriteString(rule.Value)
		}
		b.Write(content[loc[1]:])
		content = b.Bytes()

		cfg.Values[rule.Key] = rule.Value
		assign(cfg, rule)
	}

	cfg.Content = content
	return cfg, nil
}

// anchorPattern matches a whole assignment line for key and captures everything up to '='.
func anchorPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^([ \t]*` + regexp.QuoteMeta(key) + `[ \t]*=)[^\r\n]*`)
}

func assign(cfg *domain.BuildConfiguration, rule domain.PatchRule) {
	switch rule.Role {
	case domain.RoleOS:
		cfg.OS = rule.Value
	case domain.RoleCompiler:
		cfg.Compiler = rule.Value
	case domain.RoleCFlags:
		cfg.CFlags = rule.Value
	case domain.RoleLDFlags:
		cfg.LDFlags = rule.Value
	case domain.RoleLex:
		cfg.Lex = rule.Value
	case domain.RoleYacc:
		cfg.Yacc = rule.Value
	case domain.RoleNone:
	}
}

// WriteCompatHeaders writes the values.h shim into dir unless a file of that name exists.
// It reports whether the file was written.
func WriteCompatHeaders(dir string) (bool, error) {
	path := filepath.Join(dir, ShimFileName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, domain.FilePerm) //nolint:gosec // path is below the source tree
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to create portability header"), "path", path)
	}

	if _, err := f.WriteString(valuesShim); err != nil {
		_ = f.Close()
		return false, zerr.With(zerr.Wrap(err, "failed to write portability header"), "path", path)
	}
	if err := f.Close(); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to write portability header"), "path", path)
	}
	return true, nil
}
