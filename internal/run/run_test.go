// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/internal/artifact"
	"github.com/pdiddy/paper-fetcher/internal/ledger"
	"github.com/pdiddy/paper-fetcher/internal/pdftext"
	"github.com/pdiddy/paper-fetcher/internal/process"
	"github.com/pdiddy/paper-fetcher/internal/search"
	"github.com/pdiddy/paper-fetcher/internal/summarize"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

type fakeSource struct {
	items []types.RawResult
	err   error

	query  string
	max    int
	cursor *sliceCursor
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Open(query string, max int) search.Cursor {
	s.query, s.max = query, max
	s.cursor = &sliceCursor{items: s.items, err: s.err}
	return s.cursor
}

type sliceCursor struct {
	items  []types.RawResult
	err    error
	pulled int
}

func (c *sliceCursor) Next(context.Context) (types.RawResult, error) {
	if c.pulled < len(c.items) {
		c.pulled++
		return c.items[c.pulled-1], nil
	}
	if c.err != nil {
		return types.RawResult{}, c.err
	}
	return types.RawResult{}, io.EOF
}

// fakeDownloader writes a stub file. When gate is set every call waits on
// it after announcing itself on entered.
type fakeDownloader struct {
	fail    map[string]bool
	entered chan string
	gate    chan struct{}
}

func (d *fakeDownloader) Download(_ context.Context, url, dest string) error {
	if d.entered != nil {
		d.entered <- url
	}
	if d.gate != nil {
		<-d.gate
	}
	if d.fail[url] {
		return fmt.Errorf("HTTP 404 from %s", url)
	}
	return os.WriteFile(dest, []byte("%PDF-1.4"), 0o644)
}

type fakeParser struct{}

func (fakeParser) Inspect(string) (pdftext.Inspection, error) {
	return pdftext.Inspection{Pages: 1}, nil
}

func (fakeParser) ExtractPages(string) ([]pdftext.PageResult, error) {
	return []pdftext.PageResult{{Number: 1, Text: "body text"}}, nil
}

// eventLog is a concurrency-safe sink.
type eventLog struct {
	mu     sync.Mutex
	events []types.Event
}

func (l *eventLog) Report(ev types.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []types.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.Event(nil), l.events...)
}

func (l *eventLog) last() types.Event {
	all := l.all()
	return all[len(all)-1]
}

func paper(i int, published time.Time) types.RawResult {
	id := fmt.Sprintf("2401.%05dv1", i)
	return types.RawResult{
		ID:        id,
		Title:     "Paper " + id,
		Authors:   []string{"Author"},
		Published: published,
		PDFURL:    "http://pdf.test/" + id,
		EntryURL:  "http://abs.test/" + id,
	}
}

func papers(n int) []types.RawResult {
	out := make([]types.RawResult, n)
	for i := range out {
		out[i] = paper(i+1, time.Date(2024, 1, 20-i, 0, 0, 0, 0, time.UTC))
	}
	return out
}

func validConfig(max int) types.SearchConfig {
	return types.SearchConfig{
		Categories: []string{"cs.RO"},
		MaxResults: max,
		Processing: types.DefaultProcessingOptions(),
	}
}

type harness struct {
	ctrl    *Controller
	src     *fakeSource
	dl      *fakeDownloader
	events  *eventLog
	metrics *Metrics
	layout  artifact.Layout
}

func newHarness(t *testing.T, items []types.RawResult, opts ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		src:     &fakeSource{items: items},
		dl:      &fakeDownloader{fail: map[string]bool{}},
		events:  &eventLog{},
		metrics: NewMetrics(prometheus.NewRegistry()),
		layout:  artifact.Layout{Root: t.TempDir()},
	}
	deps := Deps{
		Source:     h.src,
		Downloader: h.dl,
		Parser:     fakeParser{},
		OutputDir:  h.layout.Root,
	}
	for _, o := range opts {
		o(&deps)
	}
	n := 0
	h.ctrl = New(deps,
		WithSink(h.events),
		WithMetrics(h.metrics),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("run-%d", n) }),
	)
	return h
}

func (h *harness) runToEnd(t *testing.T, cfg types.SearchConfig) (Summary, error) {
	t.Helper()
	handle, err := h.ctrl.Start(context.Background(), cfg)
	require.NoError(t, err)
	select {
	case <-handle.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish")
	}
	return handle.Wait()
}

func TestRunStopsAtMaxResults(t *testing.T) {
	h := newHarness(t, papers(5))

	sum, err := h.runToEnd(t, validConfig(3))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, sum.Outcome)
	assert.Equal(t, 3, sum.Counters.Discovered)
	assert.Equal(t, 3, sum.Counters.Downloaded)
	assert.Equal(t, 3, sum.Counters.TextExtracted)
	assert.Equal(t, 3, h.src.cursor.pulled, "no items pulled beyond max")
	assert.Equal(t, "(cat:cs.RO)", h.src.query)
	assert.Equal(t, 3, h.src.max)

	records, err := ledger.ReadCSV(h.layout.LedgerPath())
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i+1, rec.Seq)
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(h.metrics.PapersDownloaded))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Runs.WithLabelValues("completed")))
	assert.Contains(t, h.events.last().Message, "run completed: discovered 3, downloaded 3")
}

func TestRunDateFilter(t *testing.T) {
	items := []types.RawResult{
		paper(1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		paper(2, time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC)),
		paper(3, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
		paper(4, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		paper(5, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
	}
	h := newHarness(t, items)
	cfg := validConfig(10)
	cfg.DateFrom = "2024-01-01"
	cfg.DateTo = "2024-01-31"

	sum, err := h.runToEnd(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Counters.Discovered)
	assert.Equal(t, 2, sum.Counters.Skipped)
	assert.Equal(t, float64(2), testutil.ToFloat64(h.metrics.PapersSkipped))

	records, err := ledger.ReadCSV(h.layout.LedgerPath())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2024-01-31", records[0].Published)
	assert.Equal(t, "2024-01-01", records[2].Published)
}

func TestRunDownloadFailureKeepsSequenceDense(t *testing.T) {
	items := papers(3)
	h := newHarness(t, items)
	h.dl.fail[items[1].PDFURL] = true

	sum, err := h.runToEnd(t, validConfig(3))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Counters.Discovered)
	assert.Equal(t, 2, sum.Counters.Downloaded)
	assert.Equal(t, 1, sum.Counters.DownloadFailed)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.StageFailures.WithLabelValues("download")))

	records, err := ledger.ReadCSV(h.layout.LedgerPath())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Seq)
	assert.Equal(t, items[0].PDFURL, records[0].PDFURL)
	assert.Equal(t, 2, records[1].Seq)
	assert.Equal(t, items[2].PDFURL, records[1].PDFURL)
	assert.FileExists(t, h.layout.PDFPath(artifact.Key(2, items[2].ID)))

	var warned bool
	for _, ev := range h.events.all() {
		if ev.Level == types.LevelWarn && ev.Stage == "download" {
			warned = true
			assert.Equal(t, items[1].ID, ev.PaperID)
			assert.Equal(t, "run-1", ev.RunID)
		}
	}
	assert.True(t, warned)
}

func TestRunCancellation(t *testing.T) {
	h := newHarness(t, papers(5))
	h.dl.entered = make(chan string, 5)
	h.dl.gate = make(chan struct{})

	handle, err := h.ctrl.Start(context.Background(), validConfig(5))
	require.NoError(t, err)

	<-h.dl.entered
	h.ctrl.Cancel(handle)
	h.ctrl.Cancel(handle)
	close(h.dl.gate)

	sum, err := handle.Wait()
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, sum.Outcome)
	assert.Equal(t, 1, sum.Counters.Discovered)
	assert.Equal(t, 1, sum.Counters.Downloaded)
	assert.LessOrEqual(t, h.src.cursor.pulled, 2)

	records, err := ledger.ReadCSV(h.layout.LedgerPath())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	h.ctrl.Cancel(handle)
	h.ctrl.Cancel(nil)
	assert.False(t, h.ctrl.Status().Active)
}

func TestRunContextCancellation(t *testing.T) {
	h := newHarness(t, papers(5))
	h.dl.entered = make(chan string, 5)
	h.dl.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	handle, err := h.ctrl.Start(ctx, validConfig(5))
	require.NoError(t, err)

	<-h.dl.entered
	cancel()
	close(h.dl.gate)

	sum, err := handle.Wait()
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, sum.Outcome)
	assert.Equal(t, 1, sum.Counters.Discovered)
}

func TestStartRejectsSecondRun(t *testing.T) {
	h := newHarness(t, papers(2))
	h.dl.entered = make(chan string, 5)
	h.dl.gate = make(chan struct{})

	first, err := h.ctrl.Start(context.Background(), validConfig(2))
	require.NoError(t, err)
	<-h.dl.entered

	st := h.ctrl.Status()
	assert.True(t, st.Active)
	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, 1, st.Counters.Discovered)

	_, err = h.ctrl.Start(context.Background(), validConfig(2))
	assert.ErrorIs(t, err, ErrRunActive)

	close(h.dl.gate)
	_, err = first.Wait()
	require.NoError(t, err)

	st = h.ctrl.Status()
	assert.False(t, st.Active)
	assert.Equal(t, 2, st.Counters.Downloaded)

	h.dl.entered, h.dl.gate = nil, nil
	second, err := h.ctrl.Start(context.Background(), validConfig(2))
	require.NoError(t, err)
	assert.Equal(t, "run-2", second.ID)
	_, err = second.Wait()
	require.NoError(t, err)
}

func TestStartValidation(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.ctrl.Start(context.Background(), types.SearchConfig{MaxResults: 10})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.False(t, h.ctrl.Status().Active)
	assert.Empty(t, h.events.all())
}

func TestRunSearchFailureIsFatal(t *testing.T) {
	h := newHarness(t, papers(1))
	h.src.err = errors.New("HTTP 503 from arXiv")

	sum, err := h.runToEnd(t, validConfig(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Equal(t, OutcomeFailed, sum.Outcome)
	assert.Equal(t, 1, sum.Counters.Downloaded)

	var errorEvents int
	for _, ev := range h.events.all() {
		if ev.Level == types.LevelError {
			errorEvents++
		}
	}
	assert.Equal(t, 1, errorEvents)

	m, err := ReadManifest(h.layout.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, m.Outcome)
	assert.Contains(t, m.Error, "HTTP 503")
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Runs.WithLabelValues("failed")))
}

func TestRunLayoutFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	h := newHarness(t, papers(1), func(d *Deps) { d.OutputDir = filepath.Join(blocker, "out") })
	_, err := h.runToEnd(t, validConfig(1))
	assert.ErrorContains(t, err, "creating output layout")
}

func TestRunManifest(t *testing.T) {
	h := newHarness(t, papers(2))
	cfg := validConfig(2)
	cfg.Keyword = "robot grasping"
	cfg.APIKey = "sk-secret"

	_, err := h.runToEnd(t, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(h.layout.ManifestPath())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")

	m, err := ReadManifest(h.layout.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, "fake", m.Source)
	assert.Equal(t, `(cat:cs.RO) AND (ti:"robot grasping" OR abs:"robot grasping")`, m.Query)
	assert.Equal(t, OutcomeCompleted, m.Outcome)
	assert.Equal(t, 2, m.Counters.Downloaded)
	assert.Equal(t, "robot grasping", m.Config.Keyword)
	assert.Empty(t, m.Error)
}

func TestRunSQLiteMirror(t *testing.T) {
	h := newHarness(t, papers(2), func(d *Deps) { d.SQLiteMirror = true })

	_, err := h.runToEnd(t, validConfig(2))
	require.NoError(t, err)

	runs, records, err := ledger.ReadSQLite(h.layout.SQLitePath(), "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "completed", runs[0].Outcome)
	assert.Len(t, records, 2)
}

func TestRunLedgerFailureStopsRun(t *testing.T) {
	h := newHarness(t, papers(3), func(d *Deps) { d.SQLiteMirror = true })

	db, err := sql.Open("sqlite3", h.layout.SQLitePath())
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE papers (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL CHECK (seq < 2),
		title TEXT, authors TEXT, published TEXT, pdf_url TEXT, entry_url TEXT,
		abstract TEXT, pages INTEGER, encrypted TEXT, text_extracted INTEGER,
		PRIMARY KEY (run_id, seq)
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	sum, err := h.runToEnd(t, validConfig(3))
	var we *ledger.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, OutcomeFailed, sum.Outcome)
	assert.Equal(t, 2, sum.Counters.Discovered, "the run stops at the failing paper")
	assert.Equal(t, 1, sum.Counters.Downloaded)

	rows, err := ledger.ReadCSV(h.layout.LedgerPath())
	require.NoError(t, err)
	assert.Len(t, rows, sum.Counters.Downloaded)

	_, mirrored, err := ledger.ReadSQLite(h.layout.SQLitePath(), "run-1")
	require.NoError(t, err)
	assert.Len(t, mirrored, 1)

	m, err := ReadManifest(h.layout.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, m.Outcome)
	assert.Equal(t, 1, m.Counters.Downloaded)
	assert.Contains(t, m.Error, "CHECK constraint failed")
}

func TestRunSummarization(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		factoryErr  error
		wantWarning string
		wantDocs    int
	}{
		{name: "with key", apiKey: "sk-test", wantDocs: 2},
		{name: "no key", wantWarning: "no API key"},
		{name: "factory failure", apiKey: "sk-test", factoryErr: errors.New("bad base url"), wantWarning: "summarizer unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKey string
			h := newHarness(t, papers(2), func(d *Deps) {
				d.NewSummarizer = func(_ context.Context, apiKey string) (process.Summarizer, error) {
					gotKey = apiKey
					if tt.factoryErr != nil {
						return nil, tt.factoryErr
					}
					return summarize.New(summarize.BackendFunc(func(context.Context, string, string) (string, error) {
						return "analysis", nil
					}), types.SummarizerConfig{}), nil
				}
			})
			cfg := validConfig(2)
			cfg.Processing.Summarize = true
			cfg.Task = types.TaskIdentifyGaps
			cfg.APIKey = tt.apiKey

			sum, err := h.runToEnd(t, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDocs, sum.Counters.Summarized)
			assert.Equal(t, tt.apiKey, gotKey)

			docs, _ := filepath.Glob(filepath.Join(h.layout.Root, artifact.AnalysisDir, "*_ai_identify_gaps.md"))
			assert.Len(t, docs, tt.wantDocs)

			if tt.wantWarning != "" {
				var found bool
				for _, ev := range h.events.all() {
					if ev.Level == types.LevelWarn && ev.Stage == "summarize" {
						found = true
						assert.Contains(t, ev.Message, tt.wantWarning)
					}
				}
				assert.True(t, found)
			}
		})
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.discovered()
	m.skipped(3)
	m.outcome(process.Outcome{Downloaded: true})
	m.finished(OutcomeCompleted, 1)
}
