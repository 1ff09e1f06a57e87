package ports

// SourceResolver defines the interface for enumerating translation units.
//
//go:generate mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type SourceResolver interface {
	// ResolveSources returns the unit ids in dir matching include and none of exclude, sorted.
	ResolveSources(dir string, include, exclude []string) ([]string, error)
}
