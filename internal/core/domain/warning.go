package domain

import "fmt"

// WarningKind classifies a non-fatal problem recorded during a run.
type WarningKind string

const (
	// WarnCompile is recorded for a translation unit that failed to compile.
	WarnCompile WarningKind = "compile"
	// WarnVerification is recorded for a missing or broken binary.
	WarnVerification WarningKind = "verification"
	// WarnInstallation is recorded for a binary that could not be installed.
	WarnInstallation WarningKind = "installation"
	// WarnSmokeTest is recorded for a failed smoke test.
	WarnSmokeTest WarningKind = "smoke_test"
)

// Warning is a degraded outcome that does not abort the pipeline.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject"`
	Message string      `json:"message"`
}

// NewWarning creates a warning with a formatted message.
func NewWarning(kind WarningKind, subject, format string, args ...any) Warning {
	return Warning{
		Kind:    kind,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	}
}

func (w Warning) String() string {
	if w.Subject == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Subject, w.Message)
}
