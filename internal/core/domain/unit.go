package domain

import (
	"path/filepath"
	"strings"
)

// CompileStatus is the compile state of a translation unit.
type CompileStatus string

const (
	// StatusPending indicates the unit has not been compiled yet.
	StatusPending CompileStatus = "PENDING"
	// StatusCompiled indicates the unit produced its object file.
	StatusCompiled CompileStatus = "COMPILED"
	// StatusFailed indicates the unit could not be compiled.
	StatusFailed CompileStatus = "FAILED"
)

// GrammarKind identifies the generator that turns a unit into C source.
type GrammarKind string

const (
	// GrammarNone is a plain C unit.
	GrammarNone GrammarKind = ""
	// GrammarYacc is a parser grammar.
	GrammarYacc GrammarKind = "yacc"
	// GrammarLex is a lexer specification.
	GrammarLex GrammarKind = "lex"
)

// TranslationUnit is one source file and its compiled object.
type TranslationUnit struct {
	// ID is the source file name relative to the source tree, e.g. "w_item.c".
	ID string
	// Source is the path of the source file.
	Source string
	// Object is the path of the compiled object.
	Object string
	// Generated is the path of the C file produced from a grammar unit.
	Generated string
	// Grammar is the generator required before compilation.
	Grammar GrammarKind
}

// NewTranslationUnit derives object and generated paths for the source file id in dir.
func NewTranslationUnit(dir, id string) TranslationUnit {
	ext := filepath.Ext(id)
	stem := strings.TrimSuffix(id, ext)

	u := TranslationUnit{
		ID:     id,
		Source: filepath.Join(dir, id),
		Object: filepath.Join(dir, stem+ObjectExt),
	}

	switch ext {
	case YaccExt:
		u.Grammar = GrammarYacc
		u.Generated = filepath.Join(dir, stem+YaccOutputSuffix)
	case LexExt:
		u.Grammar = GrammarLex
		u.Generated = filepath.Join(dir, stem+LexOutputSuffix)
	}

	return u
}

// CompileInput returns the C file handed to the compiler.
func (u TranslationUnit) CompileInput() string {
	if u.Generated != "" {
		return u.Generated
	}
	return u.Source
}

// UnitResult is the outcome of compiling one unit.
type UnitResult struct {
	Unit   TranslationUnit
	Status CompileStatus
	Err    error
}

// CompileReport aggregates the outcome of a tolerant compile batch.
type CompileReport struct {
	// Results holds one entry per unit in input order.
	Results []UnitResult
}

// Compiled returns the number of units that compiled.
func (r *CompileReport) Compiled() int {
	return r.count(StatusCompiled)
}

// Failed returns the number of units that failed.
func (r *CompileReport) Failed() int {
	return r.count(StatusFailed)
}

// Status returns the status of the unit with the given id.
// Units the batch never saw are reported as pending.
func (r *CompileReport) Status(id string) CompileStatus {
	for _, res := range r.Results {
		if res.Unit.ID == id {
			return res.Status
		}
	}
	return StatusPending
}

// Unit returns the unit with the given id.
func (r *CompileReport) Unit(id string) (TranslationUnit, bool) {
	for _, res := range r.Results {
		if res.Unit.ID == id {
			return res.Unit, true
		}
	}
	return TranslationUnit{}, false
}

// FailedUnits returns the ids of the units that failed.
func (r *CompileReport) FailedUnits() []string {
	var ids []string
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			ids = append(ids, res.Unit.ID)
		}
	}
	return ids
}

func (r *CompileReport) count(status CompileStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}
