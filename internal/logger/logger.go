// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup points the global logger at out. DEV gets a human readable console writer,
// every other environment gets JSON lines. Unknown levels fall back to info.
func Setup(env, level string, out io.Writer) zerolog.Level {
	if out == nil {
		out = os.Stdout
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	if env == "DEV" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	l := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = l
	zerolog.DefaultContextLogger = &l

	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
	}
	return parsed
}
