// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// runState is shared between the worker, which mutates counters, and the
// control plane, which reads them and sets the cancellation flag.
type runState struct {
	id      string
	started time.Time

	cancelled atomic.Bool

	mu       sync.Mutex
	counters types.Counters
}

func newRunState(id string, started time.Time) *runState {
	return &runState{id: id, started: started}
}

// cancel sets the flag and reports whether this call set it.
func (s *runState) cancel() bool {
	return s.cancelled.CompareAndSwap(false, true)
}

func (s *runState) isCancelled() bool { return s.cancelled.Load() }

func (s *runState) snapshot() types.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

func (s *runState) update(fn func(c *types.Counters)) types.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.counters)
	return s.counters
}
