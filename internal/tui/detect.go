package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode represents the interaction mode for pgload.
type Mode int

const (
	// ModeNonInteractive is used for CI/CD pipelines, scripts, and piped input.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

// DetectMode determines whether pgload may ask questions with the selector.
//
// Returns ModeNonInteractive if:
//   - stdin or stdout is not a terminal (piped input, redirected output, CI/CD)
//   - PGLOAD_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set (accessibility/automation indicator)
func DetectMode() Mode {
	if os.Getenv("PGLOAD_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" {
		return ModeNonInteractive
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ModeNonInteractive
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ModeNonInteractive
	}

	return ModeInteractive
}

// IsInteractive is a convenience function that returns true if running in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}

// StdinIsTerminal reports whether a human could answer a line prompt,
// even when the selector is unavailable.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// CanPrompt reports whether line prompts on stdin may be used. Unlike
// IsInteractive it tolerates redirected stdout and NO_COLOR, but
// PGLOAD_NON_INTERACTIVE=1 and CI still forbid asking.
func CanPrompt() bool {
	if os.Getenv("PGLOAD_NON_INTERACTIVE") == "1" || os.Getenv("CI") != "" {
		return false
	}
	return StdinIsTerminal()
}
