package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for stage progress output.
// It decouples telemetry collection from presentation.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Stop flushes any buffered output.
	Stop() error

	// OnPlanEmit is called once the pipeline knows its stages and targets.
	OnPlanEmit(stages []string, targets []string)

	// OnTaskStart is called when a stage begins.
	// spanID: unique identifier for this stage execution
	// parentID: spanID of the enclosing span (empty if root)
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskComplete is called when a stage finishes. err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
