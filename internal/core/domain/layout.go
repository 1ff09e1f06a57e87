package domain

import "path/filepath"

const (
	// KilnDirName is the name of the internal state directory.
	KilnDirName = ".kiln"

	// RecordFileName is the name of the persisted build record.
	RecordFileName = "record.json"

	// MetricsFileName is the name of the Prometheus textfile export.
	MetricsFileName = "metrics.prom"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "kiln.yaml"

	// DefaultBuildLogName is the default name of the append-only build log.
	DefaultBuildLogName = "kiln-build.log"

	// ObjectExt is the extension of compiled object files.
	ObjectExt = ".o"

	// YaccExt is the extension of parser grammar sources.
	YaccExt = ".y"

	// LexExt is the extension of lexer sources.
	LexExt = ".l"

	// YaccOutputSuffix is appended to a parser stem to name its generated C source.
	YaccOutputSuffix = ".tab.c"

	// LexOutputSuffix is appended to a lexer stem to name its generated C source.
	LexOutputSuffix = ".yy.c"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// ExecPerm is the permission applied to linked binaries (rwxr-xr-x).
	ExecPerm = 0o755
)

// DefaultStatePath returns the state directory below root.
func DefaultStatePath(root string) string {
	return filepath.Join(root, KilnDirName)
}

// DefaultRecordPath returns the path of the build record below root.
// It joins .kiln and record.json.
func DefaultRecordPath(root string) string {
	return filepath.Join(root, KilnDirName, RecordFileName)
}

// DefaultMetricsPath returns the path of the metrics export below root.
// It joins .kiln and metrics.prom.
func DefaultMetricsPath(root string) string {
	return filepath.Join(root, KilnDirName, MetricsFileName)
}
