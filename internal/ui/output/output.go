// Package output creates termenv outputs with kiln's colour profile rules.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorProfile returns the profile for live terminal output.
// NO_COLOR forces Ascii, otherwise the terminal is queried.
func ColorProfile() termenv.Profile {
	if noColor() {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// ColorProfileANSI returns the profile for CI logs: plain ANSI unless NO_COLOR is set.
func ColorProfileANSI() termenv.Profile {
	if noColor() {
		return termenv.Ascii
	}
	return termenv.ANSI
}

// ProfileFor picks ColorProfile for an interactive terminal outside CI and
// ColorProfileANSI for pipes, files and CI logs.
func ProfileFor(w io.Writer) func() termenv.Profile {
	if IsTerminal(w) && !isCI() {
		return ColorProfile
	}
	return ColorProfileANSI
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// PlainProfile always returns Ascii. It is used for file sinks such as the build log.
func PlainProfile() termenv.Profile {
	return termenv.Ascii
}

// New creates a termenv.Output on w using ColorProfile.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	return NewWithProfile(w, ColorProfile, opts...)
}

// NewWithProfile creates a termenv.Output on w with the profile returned by profileFn.
// A nil writer defaults to os.Stderr.
func NewWithProfile(w io.Writer, profileFn func() termenv.Profile, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}

	opts = append(opts,
		termenv.WithProfile(profileFn()),
		termenv.WithTTY(true),
	)

	return termenv.NewOutput(w, opts...)
}

func isCI() bool {
	ci := os.Getenv("CI")
	return ci == "true" || ci == "1"
}

func noColor() bool {
	return os.Getenv("NO_COLOR") != ""
}
