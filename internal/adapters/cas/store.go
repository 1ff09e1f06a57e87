// Package cas implements persistence of the last build record.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BuildRecordStore = (*Store)(nil)

// Store implements ports.BuildRecordStore as a single JSON file below the project root.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Get retrieves the record stored below root.
func (s *Store) Get(root string) (*domain.BuildRecord, error) {
	filename := domain.DefaultRecordPath(root)
	//nolint:gosec // path is derived from the project root
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrStoreReadFailed, "cannot read record"), "cause", err.Error()), "path", filename)
	}

	var record domain.BuildRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrStoreUnmarshalFailed, "corrupt record"), "cause", err.Error()), "path", filename)
	}

	return &record, nil
}

// Put replaces the record stored below root.
// The file is written to a temporary name and renamed so a crash never leaves a torn record.
func (s *Store) Put(root string, record domain.BuildRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrStoreMarshalFailed, "cannot encode record"), "cause", err.Error())
	}

	filename := domain.DefaultRecordPath(root)
	if err := os.MkdirAll(filepath.Dir(filename), domain.DirPerm); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrStoreCreateFailed, "cannot create state directory"), "cause", err.Error()), "path", filename)
	}

	tmp := filename + ".tmp"
	//nolint:gosec // path is derived from the project root
	if err := os.WriteFile(tmp, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, "cannot write temporary record"), "cause", err.Error()), "path", tmp)
	}
	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, "cannot replace record"), "cause", err.Error()), "path", filename)
	}

	return nil
}
