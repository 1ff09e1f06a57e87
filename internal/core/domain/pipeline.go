package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// PipelineState is a state of the build pipeline.
type PipelineState string

const (
	StateInit        PipelineState = "INIT"
	StateConfigured  PipelineState = "CONFIGURED"
	StateCompiled    PipelineState = "COMPILED"
	StateLinked      PipelineState = "LINKED"
	StateVerified    PipelineState = "VERIFIED"
	StateInstalled   PipelineState = "INSTALLED"
	StateSmokeTested PipelineState = "SMOKE_TESTED"
	StateDone        PipelineState = "DONE"
	StateFailed      PipelineState = "FAILED"
)

// transitions lists the legal successors of every state.
// FAILED is reachable only while configuring, compiling or linking.
var transitions = map[PipelineState][]PipelineState{
	StateInit:        {StateConfigured, StateFailed},
	StateConfigured:  {StateCompiled, StateFailed},
	StateCompiled:    {StateLinked, StateFailed},
	StateLinked:      {StateVerified},
	StateVerified:    {StateInstalled},
	StateInstalled:   {StateSmokeTested},
	StateSmokeTested: {StateDone},
}

// Terminal reports whether no transition leaves s.
func (s PipelineState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether the pipeline may move from s to next.
func (s PipelineState) CanTransition(next PipelineState) bool {
	return slices.Contains(transitions[s], next)
}

// Transition returns next if the move from s is legal.
func (s PipelineState) Transition(next PipelineState) (PipelineState, error) {
	if !s.CanTransition(next) {
		err := zerr.Wrap(ErrInvalidTransition, "cannot move pipeline from "+string(s)+" to "+string(next))
		err = zerr.With(err, "from", string(s))
		return s, zerr.With(err, "to", string(next))
	}
	return next, nil
}
