package main

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// interactive reports whether prompts can be shown: both stdin and stderr are terminals
// and TRACKDL_NO_PROMPT is unset.
func interactive() bool {
	if os.Getenv("TRACKDL_NO_PROMPT") != "" {
		return false
	}
	return isTerminal(os.Stdin) && isTerminal(os.Stderr)
}

// setupColor disables colors when asked to or when stderr is not a terminal.
func setupColor(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr) {
		color.NoColor = true
	}
}
