package logging

import (
	"io"
	"os"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options captures what the global logger is built from.
type Options struct {
	Level   string             // "debug", "info", ... unknown values fall back to info
	Env     config.Environment // selects console or JSON output
	Service string             // attached to every entry
	Output  io.Writer          // defaults to os.Stderr
}

// Configure replaces the global zerolog logger. Development gets the
// human-readable console writer, production line-delimited JSON.
func Configure(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if !opts.Env.IsProduction() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	if opts.Service != "" {
		logger = logger.With().Str("service", opts.Service).Logger()
	}
	log.Logger = logger
	return logger
}
