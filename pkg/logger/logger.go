// Package logger builds the charmbracelet loggers used across lexicard.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/japaniel/lexicard/pkg/config"
)

// New creates a default logger writing to stderr.
func New(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a logger with custom options.
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// FromConfig creates a logger writing to w with the configured level and
// format. Debug level also reports the caller.
func FromConfig(w io.Writer, prefix string, c config.LogConfig) *log.Logger {
	level := c.ParsedLevel()
	return NewWithConfig(w, prefix, level, level <= log.DebugLevel, true, c.Formatter())
}
