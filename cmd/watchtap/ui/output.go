package ui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoColor = "NO_COLOR"
	envCI      = "CI"
	envTerm    = "TERM"
)

var configureOnce sync.Once

// Configure decides whether styled output is safe and pins the lipgloss
// color profile accordingly. Plain output wins when forced, when running
// under CI or NO_COLOR, with TERM=dumb, or when stderr is not a terminal —
// watchtap writes its diagnostics to stderr, so that is the stream that
// matters.
func Configure(forcePlain bool) {
	configureOnce.Do(func() {
		if plainOutput(forcePlain) {
			lipgloss.SetColorProfile(termenv.Ascii)
			return
		}
		lipgloss.SetColorProfile(termenv.ColorProfile())
	})
}

func plainOutput(forcePlain bool) bool {
	if forcePlain {
		return true
	}
	if os.Getenv(envNoColor) != "" || envTruthy(envCI) {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return true
	}
	return !stderrIsTerminal()
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
