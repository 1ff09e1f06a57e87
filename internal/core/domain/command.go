package domain

import "strings"

// Command is an external process invocation.
type Command struct {
	// Args holds the executable followed by its arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string
}

// NewCommand creates a command running argv in dir.
func NewCommand(dir string, argv ...string) *Command {
	return &Command{Args: argv, Dir: dir}
}

// String returns the command line as it would be typed in a shell.
func (c *Command) String() string {
	return strings.Join(c.Args, " ")
}
