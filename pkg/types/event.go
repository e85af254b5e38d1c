// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Level is the severity of an Event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Counters are the running totals of one run.
type Counters struct {
	// Discovered counts results that passed the date filter and entered processing.
	Discovered int `json:"discovered" yaml:"discovered"`

	// Downloaded counts papers whose PDF was fetched; equals the ledger row count.
	Downloaded int `json:"downloaded" yaml:"downloaded"`

	// TextExtracted counts papers that yielded non-empty text.
	TextExtracted int `json:"text_extracted" yaml:"text_extracted"`

	// Skipped counts results dropped by the date filter.
	Skipped int `json:"skipped" yaml:"skipped"`

	// DownloadFailed counts papers dropped at the download stage.
	DownloadFailed int `json:"download_failed" yaml:"download_failed"`

	// Summarized counts analysis documents written.
	Summarized int `json:"summarized" yaml:"summarized"`
}

// Event is one progress or log line emitted by a run.
type Event struct {
	Time    time.Time `json:"time"`
	RunID   string    `json:"run_id"`
	Level   Level     `json:"level"`
	Stage   string    `json:"stage,omitempty"`
	Seq     int       `json:"seq,omitempty"`
	PaperID string    `json:"paper_id,omitempty"`
	Message string    `json:"message"`

	// Counters is the snapshot at the time the event was emitted.
	Counters Counters `json:"counters"`
}

// Reporter receives events from pipeline components. Implementations must
// not block for long; they run on the pipeline worker.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

// Report calls f(ev).
func (f ReporterFunc) Report(ev Event) { f(ev) }

// Discard is a Reporter that drops every event.
var Discard Reporter = ReporterFunc(func(Event) {})
