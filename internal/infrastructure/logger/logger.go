// Package logger builds the process logger.
package logger

import (
	"io"
	"log/slog"
)

// New returns a text logger writing to w. Verbose runs log at debug level;
// otherwise only warnings and errors are emitted so that scheduled runs stay
// quiet unless something needs attention.
func New(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level(verbose)}))
}

// Level maps the verbose flag to a slog level.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
