package domain

// TargetState is the link state of a target.
type TargetState string

const (
	// TargetNotLinked indicates the target has not been linked yet.
	TargetNotLinked TargetState = "NOT_LINKED"
	// TargetLinked indicates the target produced its binary.
	TargetLinked TargetState = "LINKED"
	// TargetLinkFailed indicates linking failed.
	TargetLinkFailed TargetState = "LINK_FAILED"
)

// ObjectManifest is the ordered list of units linked into one target.
// When two units define the same global symbol, the one listed first wins.
type ObjectManifest struct {
	Target string
	Units  []string
}

// Target is a named binary produced by linking its manifest.
type Target struct {
	Name      string
	Manifest  ObjectManifest
	LinkFlags []string
	State     TargetState
}

// VerificationState is the liveness state of a binary.
type VerificationState string

const (
	// BinaryUnverified indicates the binary has not been checked yet.
	BinaryUnverified VerificationState = "UNVERIFIED"
	// BinaryVerified indicates the binary ran and printed output.
	BinaryVerified VerificationState = "VERIFIED"
	// BinaryBroken indicates the binary exists but did not run.
	BinaryBroken VerificationState = "BROKEN"
	// BinaryMissing indicates the binary file is absent.
	BinaryMissing VerificationState = "MISSING"
)

// Binary is the artifact of a linked target.
type Binary struct {
	Target     string
	Path       string
	Executable bool
	State      VerificationState
	// Describe is the first line printed by the describe invocation.
	Describe string
	// Digest is the xxhash of the binary content, hex encoded.
	Digest string
}

// InstallLink maps a system-wide path to a build-tree binary.
type InstallLink struct {
	Target string `json:"target"`
	Path   string `json:"path"`
	Binary string `json:"binary"`
}
