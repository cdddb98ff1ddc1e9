// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls New.
type Options struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string

	// Format is "json" (default) or "text".
	Format string

	// File, when set, also writes every line to a size-rotated file.
	File string

	// Stdout overrides the primary destination. Defaults to os.Stdout.
	Stdout io.Writer
}

// New returns a structured logger and a close func that flushes and
// releases the rotated log file, if any.
func New(opts Options) (*slog.Logger, func() error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = slog.LevelInfo
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	closeFn := func() error { return nil }
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // megabytes
			MaxBackups: 7,
			MaxAge:     14, // days
			Compress:   true,
		}
		out = io.MultiWriter(out, rotated)
		closeFn = rotated.Close
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		h = slog.NewTextHandler(out, handlerOpts)
	} else {
		h = slog.NewJSONHandler(out, handlerOpts)
	}
	return slog.New(h), closeFn
}
