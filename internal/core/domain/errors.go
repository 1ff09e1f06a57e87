package domain

import "go.trai.ch/zerr"

var (
	// ErrConfiguration is returned when the configuration template, the source tree or a
	// required field anchor is missing.
	ErrConfiguration = zerr.New("configuration error")

	// ErrTemplateNotFound is returned when the build configuration template does not exist.
	ErrTemplateNotFound = zerr.Wrap(ErrConfiguration, "configuration template not found")

	// ErrAnchorNotFound is returned when a patch rule cannot find the key it replaces.
	ErrAnchorNotFound = zerr.Wrap(ErrConfiguration, "configuration anchor not found")

	// ErrSourceTreeNotFound is returned when the source tree directory does not exist.
	ErrSourceTreeNotFound = zerr.Wrap(ErrConfiguration, "source tree not found")

	// ErrPrerequisiteBuild is returned when a prerequisite utility fails to build.
	ErrPrerequisiteBuild = zerr.New("prerequisite build failed")

	// ErrNoUnitsCompiled is returned when the tolerant compile stage makes no progress.
	ErrNoUnitsCompiled = zerr.New("not enough translation units compiled")

	// ErrObjectCollision is returned when two translation units would write the same object file.
	ErrObjectCollision = zerr.New("translation units share an object file")

	// ErrTargetNotFound is returned when the manifest registry has no entry for a target.
	ErrTargetNotFound = zerr.New("target not found in manifest registry")

	// ErrLink is returned when a target cannot be linked.
	ErrLink = zerr.New("link failed")

	// ErrMissingUnit is returned when a manifest references a unit that did not compile.
	// It is a link error.
	ErrMissingUnit = zerr.Wrap(ErrLink, "object unit was not compiled")

	// ErrInvalidTransition is returned when the pipeline attempts an illegal state change.
	ErrInvalidTransition = zerr.New("invalid pipeline state transition")

	// ErrBuildExecutionFailed is returned when the pipeline reaches the failed state.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrInvalidRule is returned when a patch rule has no key or an unknown role.
	ErrInvalidRule = zerr.Wrap(ErrConfiguration, "invalid configuration rule")

	// ErrInvalidDuration is returned when a configured duration cannot be parsed.
	ErrInvalidDuration = zerr.New("invalid duration")

	// ErrStoreCreateFailed is returned when the build record directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create build record directory")

	// ErrStoreReadFailed is returned when the build record cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read build record")

	// ErrStoreUnmarshalFailed is returned when the build record cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal build record")

	// ErrStoreMarshalFailed is returned when the build record cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal build record")

	// ErrStoreWriteFailed is returned when the build record cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write build record")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigNotFound is returned when the config file cannot be found.
	ErrConfigNotFound = zerr.New("could not find kiln.yaml")

	// ErrUnsupportedVersion is returned when the config file declares an unknown schema version.
	ErrUnsupportedVersion = zerr.New("unsupported config version")

	// ErrBuildLogOpenFailed is returned when the build log cannot be opened for appending.
	ErrBuildLogOpenFailed = zerr.New("failed to open build log")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrGlobFailed is returned when a glob pattern is malformed.
	ErrGlobFailed = zerr.New("failed to glob path")

	// ErrMetricsExportFailed is returned when stage metrics cannot be written.
	ErrMetricsExportFailed = zerr.New("failed to export metrics")
)
