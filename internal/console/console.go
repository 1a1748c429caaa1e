// SPDX-License-Identifier: MPL-2.0

// Package console provides the timestamped, leveled build log ersa writes to
// the terminal: `[HH:MM:SS] LEVEL message`. It wraps charmbracelet/log with
// an extra SUCCESS level and verbose gating, so commands log progress
// through one shared logger instead of ad-hoc prints.
package console

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// successLevel sits between INFO and WARN so success lines always print,
// even when verbose output is off.
const successLevel = log.InfoLevel + 1

type (
	// Logger is the console build logger.
	Logger struct {
		l *log.Logger
	}

	// Options configure a Logger.
	Options struct {
		// Out is where log lines go. nil defaults to os.Stderr.
		Out io.Writer
		// Verbose enables DEBUG-level lines.
		Verbose bool
	}
)

// New creates a console Logger.
func New(opts Options) *Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})

	styles := log.DefaultStyles()
	styles.Levels[successLevel] = lipgloss.NewStyle().
		SetString("SUCCESS").
		Bold(true).
		Foreground(lipgloss.Color("#10B981"))
	l.SetStyles(styles)

	if opts.Verbose {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}

	return &Logger{l: l}
}

// Debug logs a verbose-only line.
func (c *Logger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }

// Info logs a progress line.
func (c *Logger) Info(msg string, keyvals ...any) { c.l.Info(msg, keyvals...) }

// Warn logs a warning.
func (c *Logger) Warn(msg string, keyvals ...any) { c.l.Warn(msg, keyvals...) }

// Error logs an error line.
func (c *Logger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }

// Success logs a completion line at the dedicated SUCCESS level.
func (c *Logger) Success(msg string, keyvals ...any) { c.l.Log(successLevel, msg, keyvals...) }
