// Package logging wires the process-wide logger.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log lines go.
type Options struct {
	Service string
	Env     string
	// File, when set, receives a rotated copy of every line in addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Debug      bool
}

// Setup installs a JSON slog handler as the default logger and bridges the
// standard library logger onto it, so log.Printf call sites emit structured lines.
func Setup(opts Options) *slog.Logger {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			Compress:   true,
		})
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(opts.Service))}
	if env := strings.TrimSpace(opts.Env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	base := slog.New(handler.WithAttrs(attrs))
	slog.SetDefault(base)

	bridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
