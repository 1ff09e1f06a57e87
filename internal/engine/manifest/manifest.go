// Package manifest holds the hand-curated, ordered object lists of every linkable target.
//
// The order of a manifest is significant: when two units define the same global
// symbol the tolerant linker keeps the definition from the unit listed first.
// The tables are maintained by hand and are never derived from a dependency graph.
package manifest

import (
	"maps"
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultVersion identifies the built-in table. Bump it whenever an entry changes.
const DefaultVersion = "2024.1"

// Registry maps target names to their ordered unit lists.
type Registry struct {
	version string
	table   map[string][]string
}

// NewRegistry creates a registry from table. The table is copied.
func NewRegistry(version string, table map[string][]string) *Registry {
	copied := make(map[string][]string, len(table))
	for name, units := range table {
		copied[name] = slices.Clone(units)
	}
	return &Registry{version: version, table: copied}
}

// Default returns the built-in registry for the toolkit.
func Default() *Registry {
	return NewRegistry(DefaultVersion, defaultTable)
}

// WithOverrides returns a registry where the given entries replace or extend the table.
// The version is marked as locally modified.
func (r *Registry) WithOverrides(overrides map[string][]string) *Registry {
	if len(overrides) == 0 {
		return r
	}
	merged := maps.Clone(r.table)
	for name, units := range overrides {
		merged[name] = units
	}
	return NewRegistry(r.version+"+local", merged)
}

// Version returns the registry version.
func (r *Registry) Version() string {
	return r.version
}

// Resolve returns the manifest of target.
func (r *Registry) Resolve(target string) (domain.ObjectManifest, error) {
	units, ok := r.table[target]
	if !ok {
		return domain.ObjectManifest{}, zerr.With(zerr.Wrap(domain.ErrTargetNotFound, "no manifest for "+target), "target", target)
	}
	return domain.ObjectManifest{Target: target, Units: slices.Clone(units)}, nil
}

// Targets returns the known target names in sorted order.
func (r *Registry) Targets() []string {
	return slices.Sorted(maps.Keys(r.table))
}
