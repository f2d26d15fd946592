// Package logger builds the structured zerolog logger shared by the API and the CLI.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Env "development" switches to human-readable console output; anything else logs JSON.
	Env string
	// Level is one of trace, debug, info, warn, error. Unknown values mean info.
	Level string
	// Location sets the zone of the "ts" field. Nil means UTC.
	Location *time.Location
}

// New returns a stdout logger and installs it as the zerolog global logger.
func New(cfg Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	l := NewWithWriter(w, cfg)
	log.Logger = l
	return l
}

// NewWithWriter returns a logger writing one JSON object per line to w.
func NewWithWriter(w io.Writer, cfg Config) zerolog.Logger {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return zerolog.New(w).
		Level(ParseLevel(cfg.Level)).
		Hook(timestampHook{loc: loc})
}

// timestampHook stamps every event with "ts" in a fixed zone.
type timestampHook struct {
	loc *time.Location
}

func (h timestampHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str("ts", time.Now().In(h.loc).Format(time.RFC3339Nano))
}

func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
