// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability builds the process logger and turns run events
// into log lines.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// NewLogger builds a zerolog logger writing to out (stderr when nil).
// Format "console" or "pretty" selects the human-readable writer; anything
// else writes JSON.
func NewLogger(cfg types.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(cfg.Level))
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// LogSink returns a Reporter that writes every event to logger at the
// event's level.
func LogSink(logger zerolog.Logger) types.Reporter {
	return types.ReporterFunc(func(ev types.Event) {
		var e *zerolog.Event
		switch ev.Level {
		case types.LevelError:
			e = logger.Error()
		case types.LevelWarn:
			e = logger.Warn()
		default:
			e = logger.Info()
		}
		if ev.RunID != "" {
			e = e.Str("run_id", ev.RunID)
		}
		if ev.Stage != "" {
			e = e.Str("stage", ev.Stage)
		}
		if ev.Seq > 0 {
			e = e.Int("seq", ev.Seq)
		}
		if ev.PaperID != "" {
			e = e.Str("paper_id", ev.PaperID)
		}
		e.Int("discovered", ev.Counters.Discovered).
			Int("downloaded", ev.Counters.Downloaded).
			Int("text_extracted", ev.Counters.TextExtracted).
			Msg(ev.Message)
	})
}
