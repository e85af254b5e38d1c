// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Stage names one step of the per-paper pipeline.
type Stage int

const (
	StageDownload Stage = iota
	StageInspect
	StageExtract
	StagePersist
	StageSummarize
	StageRecord
)

var stageNames = [...]string{"download", "inspect", "extract", "persist", "summarize", "record"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Sentinels matched by StageError.Is.
var (
	ErrDownload = errors.New("download failed")
	ErrInspect  = errors.New("inspection failed")
	ErrExtract  = errors.New("text extraction failed")
	ErrPersist  = errors.New("artifact write failed")
)

// StageError is a per-paper failure. It never aborts the run.
type StageError struct {
	Stage   Stage
	PaperID string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.PaperID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Is matches the sentinel of e's stage.
func (e *StageError) Is(target error) bool {
	switch target {
	case ErrDownload:
		return e.Stage == StageDownload
	case ErrInspect:
		return e.Stage == StageInspect
	case ErrExtract:
		return e.Stage == StageExtract
	case ErrPersist:
		return e.Stage == StagePersist
	}
	return false
}

// excerptLimit bounds error text carried in events.
const excerptLimit = 100

// Excerpt renders err for an event message, cut to a bounded length.
func Excerpt(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if utf8.RuneCountInString(s) <= excerptLimit {
		return s
	}
	return string([]rune(s)[:excerptLimit]) + "..."
}
