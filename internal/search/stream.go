// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// ErrStopped is returned by Stream.Next once the liveness check fails.
var ErrStopped = errors.New("search stream stopped")

// StreamOptions configures a Stream.
type StreamOptions struct {
	// Max caps the raw items pulled from the cursor, including the ones
	// dropped by the date filter. Zero means no cap.
	Max int

	// From and To are inclusive calendar-date bounds compared in UTC. A
	// zero value leaves that side open.
	From, To time.Time

	// Alive is consulted before and after every pull. Nil means always alive.
	Alive func() bool
}

// Stream applies the client-side filters the API cannot guarantee and
// exposes the run's cancellation point.
type Stream struct {
	cur     Cursor
	opts    StreamOptions
	from    time.Time
	to      time.Time
	pulled  int
	skipped int
}

// NewStream wraps cur.
func NewStream(cur Cursor, opts StreamOptions) *Stream {
	return &Stream{
		cur:  cur,
		opts: opts,
		from: dayOf(opts.From),
		to:   dayOf(opts.To),
	}
}

// Next returns the next result inside the date range. It returns io.EOF
// when the cursor is exhausted or Max items were pulled, and ErrStopped
// when Alive reports false; an item pulled just before that is discarded.
func (s *Stream) Next(ctx context.Context) (types.RawResult, error) {
	for {
		if !s.alive() {
			return types.RawResult{}, ErrStopped
		}
		if s.opts.Max > 0 && s.pulled >= s.opts.Max {
			return types.RawResult{}, io.EOF
		}

		raw, err := s.cur.Next(ctx)
		if err != nil {
			if !s.alive() {
				return types.RawResult{}, ErrStopped
			}
			return types.RawResult{}, err
		}
		s.pulled++

		if !s.alive() {
			return types.RawResult{}, ErrStopped
		}
		if !s.InRange(raw.Published) {
			s.skipped++
			continue
		}
		return raw, nil
	}
}

// Skipped reports how many pulled items the date filter dropped.
func (s *Stream) Skipped() int { return s.skipped }

// Pulled reports how many items were taken from the cursor.
func (s *Stream) Pulled() int { return s.pulled }

// InRange reports whether t falls inside the configured date range. An
// undated item is outside any bounded range.
func (s *Stream) InRange(t time.Time) bool {
	if s.from.IsZero() && s.to.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	d := dayOf(t)
	if !s.from.IsZero() && d.Before(s.from) {
		return false
	}
	if !s.to.IsZero() && d.After(s.to) {
		return false
	}
	return true
}

func (s *Stream) alive() bool {
	return s.opts.Alive == nil || s.opts.Alive()
}

func dayOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
