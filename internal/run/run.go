// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package run owns the lifecycle of a fetch: at most one run is active per
// Controller, it processes search results one at a time on a single worker
// goroutine and it stops cooperatively between papers when cancelled.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-fetcher/internal/artifact"
	"github.com/pdiddy/paper-fetcher/internal/ledger"
	"github.com/pdiddy/paper-fetcher/internal/pdftext"
	"github.com/pdiddy/paper-fetcher/internal/process"
	"github.com/pdiddy/paper-fetcher/internal/search"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// ErrRunActive is returned by Start while another run is in progress.
var ErrRunActive = errors.New("a run is already active")

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// SummarizerFactory builds the summarizer for a run given its credential.
type SummarizerFactory func(ctx context.Context, apiKey string) (process.Summarizer, error)

// Deps are the collaborators every run uses.
type Deps struct {
	Source     search.Source
	Downloader process.Downloader
	Parser     pdftext.Parser

	// NewSummarizer is called once per run that enables summarization and
	// carries an API key. Nil disables summarization.
	NewSummarizer SummarizerFactory

	// OutputDir is the root of the run's artifacts.
	OutputDir string

	// SQLiteMirror also records ledger rows in ledger.db.
	SQLiteMirror bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink adds an event sink. Sinks are called on the worker goroutine.
func WithSink(s types.Reporter) Option {
	return func(c *Controller) { c.sinks = append(c.sinks, s) }
}

// WithMetrics records run progress in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator replaces the uuid run id generator.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) { c.newID = gen }
}

// Controller is the control surface of the pipeline. Start, Cancel and
// Status are safe to call from any goroutine.
type Controller struct {
	deps    Deps
	sinks   []types.Reporter
	metrics *Metrics
	now     func() time.Time
	newID   func() string

	mu     sync.Mutex
	active *runState
	last   *runState
}

// New builds a Controller.
func New(deps Deps, opts ...Option) *Controller {
	c := &Controller{
		deps:  deps,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summary is the final state of a run.
type Summary struct {
	RunID      string         `json:"run_id"`
	Query      string         `json:"query"`
	Outcome    Outcome        `json:"outcome"`
	Counters   types.Counters `json:"counters"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Handle refers to one started run.
type Handle struct {
	ID string

	state   *runState
	done    chan struct{}
	summary Summary
	err     error
}

// Done is closed when the run has become inactive.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the run ends and returns its summary and fatal error.
func (h *Handle) Wait() (Summary, error) {
	<-h.done
	return h.summary, h.err
}

// Status is a point-in-time view of the controller.
type Status struct {
	Active   bool           `json:"active"`
	RunID    string         `json:"run_id,omitempty"`
	Counters types.Counters `json:"counters"`
}

// Status reports the active run, or the counters of the last finished one.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.active != nil:
		return Status{Active: true, RunID: c.active.id, Counters: c.active.snapshot()}
	case c.last != nil:
		return Status{RunID: c.last.id, Counters: c.last.snapshot()}
	}
	return Status{}
}

// Start validates cfg and launches a run. It fails with ErrRunActive
// while another run is in progress and with a *types.ValidationError when
// cfg is invalid.
func (c *Controller) Start(ctx context.Context, cfg types.SearchConfig) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, ErrRunActive
	}
	state := newRunState(c.newID(), c.now())
	c.active = state
	c.mu.Unlock()

	h := &Handle{ID: state.id, state: state, done: make(chan struct{})}
	go c.work(ctx, h, cfg)
	return h, nil
}

// Cancel asks the run behind h to stop at the next paper boundary. It is
// safe to call more than once and after the run ended.
func (c *Controller) Cancel(h *Handle) {
	if h == nil {
		return
	}
	h.state.cancel()
}

// worker carries the per-run resources of one work call.
type worker struct {
	c      *Controller
	state  *runState
	cfg    types.SearchConfig
	layout artifact.Layout
	query  string
}

func (c *Controller) work(ctx context.Context, h *Handle, cfg types.SearchConfig) {
	w := &worker{
		c:      c,
		state:  h.state,
		cfg:    cfg,
		layout: artifact.Layout{Root: c.deps.OutputDir},
		query:  search.Compile(cfg),
	}

	outcome, mirror, closer, err := w.run(ctx)
	if err != nil {
		outcome = OutcomeFailed
		w.emit(types.LevelError, "", "run failed: "+err.Error())
	}

	finished := c.now()
	counters := h.state.snapshot()
	w.emit(types.LevelInfo, "", fmt.Sprintf(
		"run %s: discovered %d, downloaded %d, text extracted %d, skipped %d, download failures %d",
		outcome, counters.Discovered, counters.Downloaded, counters.TextExtracted,
		counters.Skipped, counters.DownloadFailed))

	m := Manifest{
		RunID:      h.ID,
		Query:      w.query,
		Config:     cfg,
		StartedAt:  h.state.started,
		FinishedAt: finished,
		Outcome:    outcome,
		Counters:   counters,
	}
	if c.deps.Source != nil {
		m.Source = c.deps.Source.Name()
	}
	if err != nil {
		m.Error = err.Error()
	}
	if werr := WriteManifest(w.layout.ManifestPath(), m); werr != nil {
		w.emit(types.LevelWarn, "", process.Excerpt(werr))
	}
	if mirror != nil {
		if ferr := mirror.Finish(string(outcome)); ferr != nil {
			w.emit(types.LevelWarn, "", process.Excerpt(ferr))
		}
	}
	if closer != nil {
		if cerr := closer.Close(); cerr != nil {
			w.emit(types.LevelWarn, "", process.Excerpt(cerr))
		}
	}
	c.metrics.finished(outcome, finished.Sub(h.state.started).Seconds())

	h.summary = Summary{
		RunID:      h.ID,
		Query:      w.query,
		Outcome:    outcome,
		Counters:   counters,
		StartedAt:  h.state.started,
		FinishedAt: finished,
	}
	h.err = err

	c.mu.Lock()
	c.active = nil
	c.last = h.state
	c.mu.Unlock()
	close(h.done)
}

// run opens the run's resources and drives the stream. It returns the
// ledger to close even when it fails part way.
func (w *worker) run(ctx context.Context) (Outcome, *ledger.SQLiteSink, ledger.Sink, error) {
	deps := w.c.deps
	if deps.Source == nil || deps.Downloader == nil || deps.Parser == nil {
		return OutcomeFailed, nil, nil, errors.New("run is missing a search source, downloader or parser")
	}
	if err := w.layout.Create(w.cfg.Processing); err != nil {
		return OutcomeFailed, nil, nil, fmt.Errorf("creating output layout: %w", err)
	}

	csvSink, err := ledger.OpenCSV(w.layout.LedgerPath())
	if err != nil {
		return OutcomeFailed, nil, nil, err
	}
	// metadata.csv is appended last so a mirror failure never leaves a
	// row for a paper the counters do not include.
	sinks := []ledger.Sink{csvSink}
	var mirror *ledger.SQLiteSink
	if deps.SQLiteMirror {
		mirror, err = ledger.OpenSQLite(w.layout.SQLitePath(), w.state.id)
		if err != nil {
			return OutcomeFailed, nil, csvSink, err
		}
		sinks = []ledger.Sink{mirror, csvSink}
	}
	led := ledger.Multi(sinks...)

	w.emit(types.LevelInfo, "", fmt.Sprintf("searching %s: %s (max %d)", deps.Source.Name(), w.query, w.cfg.MaxResults))

	proc := &process.Processor{
		Downloader: deps.Downloader,
		Parser:     deps.Parser,
		Summarizer: w.summarizer(ctx),
		Layout:     w.layout,
		Ledger:     led,
		Options:    w.cfg.Processing,
		Task:       w.cfg.EffectiveTask(),
		Reporter:   types.ReporterFunc(w.forward),
		Now:        w.c.now,
	}

	from, to, _ := w.cfg.DateRange()
	stream := search.NewStream(deps.Source.Open(w.query, w.cfg.MaxResults), search.StreamOptions{
		Max:   w.cfg.MaxResults,
		From:  from,
		To:    to,
		Alive: func() bool { return !w.state.isCancelled() && ctx.Err() == nil },
	})

	seq := 1
	for {
		raw, err := stream.Next(ctx)
		w.syncSkipped(stream.Skipped())
		switch {
		case err == io.EOF:
			return OutcomeCompleted, mirror, led, nil
		case errors.Is(err, search.ErrStopped):
			w.emit(types.LevelWarn, "", "run cancelled")
			return OutcomeCancelled, mirror, led, nil
		case err != nil:
			return OutcomeFailed, mirror, led, fmt.Errorf("search %s: %w", deps.Source.Name(), err)
		}

		w.state.update(func(c *types.Counters) { c.Discovered++ })
		w.c.metrics.discovered()
		w.emitPaper(types.LevelInfo, seq, raw.ID, "found: "+raw.Title)

		out, err := proc.Process(ctx, seq, raw)
		if err != nil {
			return OutcomeFailed, mirror, led, err
		}
		w.state.update(func(c *types.Counters) {
			if out.Downloaded {
				c.Downloaded++
			} else {
				c.DownloadFailed++
			}
			if out.TextExtracted {
				c.TextExtracted++
			}
			if out.Summarized {
				c.Summarized++
			}
		})
		w.c.metrics.outcome(out)
		if out.Downloaded {
			seq++
		}
	}
}

// summarizer returns the run's summarizer, or nil when summarization is
// off or cannot be set up.
func (w *worker) summarizer(ctx context.Context) process.Summarizer {
	if !w.cfg.Processing.Summarize {
		return nil
	}
	if w.cfg.APIKey == "" {
		w.emit(types.LevelWarn, process.StageSummarize.String(), "summarization enabled but no API key configured, skipping")
		return nil
	}
	if w.c.deps.NewSummarizer == nil {
		w.emit(types.LevelWarn, process.StageSummarize.String(), "summarization enabled but no backend configured, skipping")
		return nil
	}
	s, err := w.c.deps.NewSummarizer(ctx, w.cfg.APIKey)
	if err != nil {
		w.emit(types.LevelWarn, process.StageSummarize.String(), "summarizer unavailable: "+process.Excerpt(err))
		return nil
	}
	return s
}

func (w *worker) syncSkipped(total int) {
	var delta int
	w.state.update(func(c *types.Counters) {
		delta = total - c.Skipped
		c.Skipped = total
	})
	w.c.metrics.skipped(delta)
}

func (w *worker) emit(level types.Level, stage, msg string) {
	w.forward(types.Event{Level: level, Stage: stage, Message: msg})
}

func (w *worker) emitPaper(level types.Level, seq int, id, msg string) {
	w.forward(types.Event{Level: level, Stage: "discover", Seq: seq, PaperID: id, Message: msg})
}

// forward stamps ev with the run id, time and counters and hands it to
// every sink.
func (w *worker) forward(ev types.Event) {
	ev.Time = w.c.now()
	ev.RunID = w.state.id
	ev.Counters = w.state.snapshot()
	for _, s := range w.c.sinks {
		s.Report(ev)
	}
}
