package fs

import (
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceResolver = (*Resolver)(nil)

// Resolver implements the SourceResolver interface using filepath.Glob.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveSources expands the include patterns inside dir and returns the sorted unit ids,
// which are file names relative to dir. Ids matching an exclude pattern are dropped, as are
// sources generated from grammar units. A pattern without matches is not an error.
func (r *Resolver) ResolveSources(dir string, include, exclude []string) ([]string, error) {
	for _, pattern := range exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrGlobFailed, "invalid exclude pattern"), "cause", err.Error()), "pattern", pattern)
		}
	}

	unique := make(map[string]bool)

	for _, pattern := range include {
		path := filepath.Join(dir, pattern)

		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrGlobFailed, "invalid source pattern"), "cause", err.Error()), "pattern", pattern)
		}

		for _, match := range matches {
			id, err := filepath.Rel(dir, match)
			if err != nil {
				continue
			}
			id = filepath.ToSlash(id)
			if isGenerated(id) || isExcluded(id, exclude) {
				continue
			}
			unique[id] = true
		}
	}

	result := make([]string, 0, len(unique))
	for id := range unique {
		result = append(result, id)
	}
	sort.Strings(result)

	return result, nil
}

func isGenerated(id string) bool {
	return strings.HasSuffix(id, domain.YaccOutputSuffix) || strings.HasSuffix(id, domain.LexOutputSuffix)
}

func isExcluded(id string, exclude []string) bool {
	for _, pattern := range exclude {
		if matched, _ := filepath.Match(pattern, id); matched {
			return true
		}
	}
	return false
}
