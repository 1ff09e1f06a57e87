package domain

import (
	"time"

	"github.com/google/uuid"
)

// Report is the in-memory outcome of one pipeline run.
type Report struct {
	RunID     uuid.UUID
	StartedAt time.Time
	State     PipelineState

	Config   *BuildConfiguration
	Compile  *CompileReport
	Targets  []*Target
	Binaries []*Binary
	Links    []InstallLink
	Warnings []Warning
}

// NewReport creates a report for a fresh run in the INIT state.
func NewReport(startedAt time.Time) *Report {
	return &Report{
		RunID:     uuid.New(),
		StartedAt: startedAt,
		State:     StateInit,
	}
}

// Warn records a warning.
func (r *Report) Warn(w Warning) {
	r.Warnings = append(r.Warnings, w)
}

// WarningsOf returns the warnings of the given kind.
func (r *Report) WarningsOf(kind WarningKind) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

// Target returns the target with the given name.
func (r *Report) Target(name string) *Target {
	for _, t := range r.Targets {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Binary returns the binary of the given target.
func (r *Report) Binary(target string) *Binary {
	for _, b := range r.Binaries {
		if b.Target == target {
			return b
		}
	}
	return nil
}

// Record converts the report into its persisted form.
func (r *Report) Record(finishedAt time.Time) BuildRecord {
	rec := BuildRecord{
		RunID:      r.RunID.String(),
		StartedAt:  r.StartedAt,
		FinishedAt: finishedAt,
		State:      r.State,
		Units:      make(map[string]CompileStatus),
		Targets:    make(map[string]TargetState),
		Binaries:   make(map[string]BinaryRecord),
		Links:      r.Links,
		Warnings:   r.Warnings,
	}

	if r.Config != nil {
		rec.OS = r.Config.OS
	}
	if r.Compile != nil {
		for _, res := range r.Compile.Results {
			rec.Units[res.Unit.ID] = res.Status
		}
	}
	for _, t := range r.Targets {
		rec.Targets[t.Name] = t.State
	}
	for _, b := range r.Binaries {
		rec.Binaries[b.Target] = BinaryRecord{
			Path:     b.Path,
			State:    b.State,
			Describe: b.Describe,
			Digest:   b.Digest,
		}
	}

	return rec
}

// BuildRecord is the persisted summary of the last run, stored as JSON.
type BuildRecord struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	State      PipelineState            `json:"state"`
	OS         string                   `json:"os,omitempty"`
	Units      map[string]CompileStatus `json:"units"`
	Targets    map[string]TargetState   `json:"targets"`
	Binaries   map[string]BinaryRecord  `json:"binaries"`
	Links      []InstallLink            `json:"links"`
	Warnings   []Warning                `json:"warnings"`
}

// BinaryRecord is the persisted state of one binary.
type BinaryRecord struct {
	Path     string            `json:"path"`
	State    VerificationState `json:"state"`
	Describe string            `json:"describe,omitempty"`
	Digest   string            `json:"digest,omitempty"`
}
