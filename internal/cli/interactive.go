package cli

import "os"

// IsNonInteractive reports whether prompts should be skipped and defaults used.
func IsNonInteractive() bool {
	if nonInteractive {
		return true
	}
	if _, ok := os.LookupEnv("SHEM_NON_INTERACTIVE"); ok {
		return true
	}
	return !hasTTY()
}

// IsInteractive reports whether the session can prompt for user input.
func IsInteractive() bool {
	return !IsNonInteractive()
}

// requireInteractive fails with a preflight error when what needs a terminal.
func requireInteractive(what, nextStep string) error {
	if IsInteractive() {
		return nil
	}
	return &PreflightError{
		Message:  what + " requires an interactive terminal",
		Hint:     "Run without --non-interactive and with a TTY, or use CLI subcommands",
		NextStep: nextStep,
	}
}
