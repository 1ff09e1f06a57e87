package ports

import "io"

// BuildLog is the append-only, timestamped record of a run.
// Writes before Open or after Close are discarded.
//
//go:generate mockgen -source=buildlog.go -destination=mocks/mock_buildlog.go -package=mocks
type BuildLog interface {
	io.Writer
	// Open starts appending to the log file at path.
	Open(path string) error
	// Close flushes and releases the log file.
	Close() error
}
