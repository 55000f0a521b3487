// ABOUTME: Log output setup with file rotation
// ABOUTME: Tees the standard logger to stdout unless the TUI owns the terminal
package logging

import (
	"io"
	"log"
	"os"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log lines go
type Options struct {
	// File is the log file path; empty logs to stdout only
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Console tees log lines to stdout
	Console bool

	// Debug enables Debugf lines
	Debug bool
}

var debug atomic.Bool

// Setup points the standard logger at the configured outputs. The
// returned closer flushes and closes the log file.
func Setup(opts Options) io.Closer {
	debug.Store(opts.Debug)

	if opts.File == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}

	f := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}

	if opts.Console {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		// TUI mode: log only to file
		log.SetOutput(f)
	}
	return f
}

// Debugf logs a line when debug logging is enabled
func Debugf(format string, args ...any) {
	if debug.Load() {
		log.Printf("DEBUG: "+format, args...)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
