// Package logging builds the zerolog loggers used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const timeFormat = "15:04:05"

var osOpenFile = os.OpenFile
var osMkdirAll = os.MkdirAll

// New returns a human readable logger writing to w.
func New(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: timeFormat,
	}).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewFile returns a logger appending to the file at p. The terminal belongs
// to the picker UI while it runs, so logs cannot go to stderr.
func NewFile(p string, level string) (zerolog.Logger, io.Closer, error) {
	if err := osMkdirAll(filepath.Dir(p), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := osOpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := zerolog.New(f).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
	return logger, f, nil
}

// ParseLevel accepts zerolog level names case-insensitively. Unknown or empty
// names mean info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
