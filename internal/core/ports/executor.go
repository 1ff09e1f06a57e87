// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
)

// Executor defines the interface for running external tools.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs cmd and waits for it to exit.
	//
	// Output is copied to stdout and stderr line by line as it is produced.
	// A non-zero exit is returned as an error carrying the exit_code metadata.
	Execute(ctx context.Context, cmd *domain.Command, stdout, stderr io.Writer) error
}
