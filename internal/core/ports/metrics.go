package ports

import "time"

// Recorder defines the interface for stage metrics.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Recorder interface {
	// ObserveStage records how long a pipeline stage took.
	ObserveStage(stage string, d time.Duration)
	// AddUnits counts translation units by compile status.
	AddUnits(status string, n int)
	// IncTarget counts a target by link state.
	IncTarget(state string)
	// IncWarning counts a warning by kind.
	IncWarning(kind string)
	// IncRun counts a finished run by outcome.
	IncRun(outcome string)
	// Export writes all collected metrics to path.
	Export(path string) error
}
