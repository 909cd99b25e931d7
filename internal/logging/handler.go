package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charm "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Supported output formats.
const (
	FormatAuto    = "auto"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// isTerminal is a seam for tests.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// New builds a Logger writing to w.
//
// "json" emits one JSON object per line, "console" emits colored human
// readable lines, "auto" picks console for terminals and json otherwise.
func New(format string, w io.Writer, debug bool) (*SlogLogger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatConsole
		}
	}

	var h slog.Handler
	switch format {
	case FormatJSON:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case FormatConsole:
		cl := charm.NewWithOptions(w, charm.Options{
			ReportTimestamp: true,
			TimeFormat:      "2006-01-02 15:04:05",
		})
		if debug {
			cl.SetLevel(charm.DebugLevel)
		}
		h = cl
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return NewSlogLogger(slog.New(h)), nil
}
