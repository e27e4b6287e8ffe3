package slam

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger creates JSON logger writing to w with the given level
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsoleLogger creates human readable logger writing to stderr
func NewConsoleLogger(level zerolog.Level) zerolog.Logger {
	return NewLogger(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}
