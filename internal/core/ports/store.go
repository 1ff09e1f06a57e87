package ports

import "go.trai.ch/kiln/internal/core/domain"

// BuildRecordStore defines the interface for persisting the last build record.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type BuildRecordStore interface {
	// Get retrieves the record stored below root.
	// Returns nil, nil if no run has been recorded yet.
	Get(root string) (*domain.BuildRecord, error)

	// Put replaces the record stored below root.
	Put(root string, record domain.BuildRecord) error
}
