// Package linear provides a synchronous, line-oriented stage renderer for terminals and CI logs.
package linear

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer implements ports.Renderer.
// It writes chronological stage lines to the live output and, without colour, to the log.
type Renderer struct {
	live *termenv.Output
	log  io.Writer

	mu    sync.Mutex
	tasks map[string]*taskState // spanID -> task state
}

type taskState struct {
	name      string
	depth     int
	startTime time.Time
}

// NewRenderer creates a new Renderer writing to live and mirroring every line to log.
// A nil live writer defaults to os.Stderr; a nil log disables mirroring.
func NewRenderer(live, log io.Writer) *Renderer {
	if live == nil {
		live = os.Stderr
	}
	return NewRendererWithProfile(live, log, output.ProfileFor(live))
}

// NewRendererWithProfile creates a Renderer whose live output uses the profile returned by profileFn.
func NewRendererWithProfile(live, log io.Writer, profileFn func() termenv.Profile) *Renderer {
	if live == nil {
		live = os.Stderr
	}

	return &Renderer{
		live:  output.NewWithProfile(live, profileFn),
		log:   log,
		tasks: make(map[string]*taskState),
	}
}

// Start is a no-op for the linear renderer (synchronous).
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop reports stages that never completed.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for spanID, task := range r.tasks {
		r.printLocked(task.depth, fmt.Sprintf("[%s] interrupted", task.name), "")
		delete(r.tasks, spanID)
	}

	return nil
}

// OnPlanEmit prints the planned stages.
func (r *Renderer) OnPlanEmit(stages, targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := fmt.Sprintf("Planning %d stage(s) for target(s): %s", len(stages), strings.Join(targets, ", "))
	styled := r.live.String(line).Foreground(r.live.Color(string(style.Iris))).String()
	r.writeLocked(styled, line)
}

// OnTaskStart prints a stage start message.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	depth := 0
	if parent, ok := r.tasks[parentID]; ok {
		depth = parent.depth + 1
	}

	r.tasks[spanID] = &taskState{
		name:      name,
		depth:     depth,
		startTime: startTime,
	}

	prefix := fmt.Sprintf("[%s]", name)
	r.printLocked(depth, prefix+" Starting...", r.live.String(prefix).Faint().String()+" Starting...")
}

// OnTaskComplete prints the completion status of a stage.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	delete(r.tasks, spanID)

	duration := endTime.Sub(task.startTime).Round(time.Millisecond)
	prefix := fmt.Sprintf("[%s]", task.name)

	if err != nil {
		symbol := r.live.String(style.Cross).Foreground(r.live.Color(string(style.Red))).String()
		plain := fmt.Sprintf("%s %s Failed after %v: %v", prefix, style.Cross, duration, err)
		r.printLocked(task.depth, plain, fmt.Sprintf("%s %s Failed after %v: %v", prefix, symbol, duration, err))
		return
	}

	symbol := r.live.String(style.Check).Foreground(r.live.Color(string(style.Green))).String()
	plain := fmt.Sprintf("%s %s Completed in %v", prefix, style.Check, duration)
	r.printLocked(task.depth, plain, fmt.Sprintf("%s %s Completed in %v", prefix, symbol, duration))
}

// printLocked writes an indented line. An empty styled line falls back to plain.
// Must be called with r.mu held.
func (r *Renderer) printLocked(depth int, plain, styled string) {
	if styled == "" {
		styled = plain
	}
	indent := strings.Repeat("  ", depth)
	r.writeLocked(indent+styled, indent+plain)
}

// writeLocked must be called with r.mu held.
func (r *Renderer) writeLocked(styled, plain string) {
	_, _ = fmt.Fprintln(r.live, styled)
	if r.log != nil {
		_, _ = io.WriteString(r.log, plain+"\n")
	}
}
