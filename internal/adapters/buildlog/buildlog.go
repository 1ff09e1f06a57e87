// Package buildlog implements the append-only, timestamped build log.
package buildlog

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BuildLog = (*Log)(nil)

// Log implements ports.BuildLog.
// Each complete line is prefixed with an RFC 3339 timestamp. The file is never truncated.
type Log struct {
	mu   sync.Mutex
	file *os.File
	buf  []byte
	now  func() time.Time
}

// New creates a closed Log. Writes are discarded until Open is called.
func New() *Log {
	return &Log{now: time.Now}
}

// NewWithClock creates a closed Log that stamps lines using now.
func NewWithClock(now func() time.Time) *Log {
	return &Log{now: now}
}

// Open starts appending to path, creating it and its directory if needed.
// A previously opened file is flushed and closed first.
func (l *Log) Open(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.closeLocked(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrBuildLogOpenFailed, "cannot create log directory"), "cause", err.Error()), "path", path)
	}

	//nolint:gosec // path comes from the project configuration
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, domain.FilePerm)
	if err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrBuildLogOpenFailed, "cannot open log for appending"), "cause", err.Error()), "path", path)
	}

	l.file = f
	return nil
}

// Write appends p. Partial lines are held until their newline arrives.
func (l *Log) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return len(p), nil
	}

	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		if err := l.writeLineLocked(l.buf[:i]); err != nil {
			return 0, err
		}
		l.buf = l.buf[i+1:]
	}

	return len(p), nil
}

// Close flushes any partial line and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *Log) closeLocked() error {
	if l.file == nil {
		return nil
	}

	var flushErr error
	if len(l.buf) > 0 {
		flushErr = l.writeLineLocked(l.buf)
		l.buf = nil
	}

	closeErr := l.file.Close()
	l.file = nil

	if flushErr != nil {
		return flushErr
	}
	return zerr.Wrap(closeErr, "failed to close build log")
}

func (l *Log) writeLineLocked(line []byte) error {
	stamped := make([]byte, 0, len(line)+32)
	stamped = l.now().AppendFormat(stamped, time.RFC3339)
	stamped = append(stamped, ' ')
	stamped = append(stamped, bytes.TrimSuffix(line, []byte("\r"))...)
	stamped = append(stamped, '\n')

	if _, err := l.file.Write(stamped); err != nil {
		return zerr.Wrap(err, "failed to append to build log")
	}
	return nil
}
