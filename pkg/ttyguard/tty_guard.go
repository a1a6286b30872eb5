// Package ttyguard stops terminal capability probing in non-interactive runs.
// Import it for side effects before any package that renders with lipgloss.
package ttyguard

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal (and before any TUI starts).
//
// Lipgloss and glamour query the terminal background on first use, which
// emits OSC/DSR control sequences to stdout. Those are harmless in a real
// terminal but end up in piped -dump output. Termenv skips the probe when CI
// is set.
func init() {
	if os.Getenv("CI") != "" {
		return
	}

	if !shouldSuppressTTYQueries(os.Args, os.Getenv("CARDTREE_TEST_MODE") != "") {
		return
	}

	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envTest bool) bool {
	if envTest {
		return true
	}

	for _, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if i := strings.IndexByte(name, '='); i >= 0 {
			name = name[:i]
		}
		switch name {
		case "dump", "export", "save", "stats", "version", "help", "setup":
			return true
		}
	}

	return false
}
