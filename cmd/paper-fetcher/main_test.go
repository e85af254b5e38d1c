// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/internal/artifact"
	"github.com/pdiddy/paper-fetcher/internal/ledger"
	"github.com/pdiddy/paper-fetcher/internal/pdftext"
	"github.com/pdiddy/paper-fetcher/internal/run"
	"github.com/pdiddy/paper-fetcher/internal/search"
	"github.com/pdiddy/paper-fetcher/internal/secrets"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := decodeConfig(newTestViper(), secrets.Secrets{})
	require.NoError(t, err)

	assert.Equal(t, []string{"cs.RO", "cs.AI", "eess.SY"}, cfg.Search.Categories)
	assert.Equal(t, types.DefaultMaxResults, cfg.Search.MaxResults)
	assert.Equal(t, types.DefaultProcessingOptions(), cfg.Search.Processing)
	assert.Equal(t, types.TaskSummarize, cfg.Search.Task)
	assert.Equal(t, "arxiv_papers", cfg.Output.Dir)
	assert.Equal(t, 60*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Arxiv.PageDelay)
	assert.Equal(t, 100, cfg.Arxiv.PageSize)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Summarizer.Model)
	assert.InDelta(t, 0.3, cfg.Summarizer.Temperature, 1e-6)
	assert.Empty(t, cfg.Search.APIKey)
	require.NoError(t, cfg.Search.Validate())
}

func TestDecodeConfigKeywordSuppressesDefaultCategories(t *testing.T) {
	v := newTestViper()
	v.Set("search.keyword", "soft robotics")

	cfg, err := decodeConfig(v, secrets.Secrets{})
	require.NoError(t, err)
	assert.Empty(t, cfg.Search.Categories)
	assert.Equal(t, `(ti:"soft robotics" OR abs:"soft robotics")`, search.Compile(cfg.Search))
}

func TestDecodeConfigCategoriesFromString(t *testing.T) {
	v := newTestViper()
	v.Set("search.categories", "cs.LG, q-bio.NC")

	cfg, err := decodeConfig(v, secrets.Secrets{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cs.LG", "q-bio.NC"}, cfg.Search.Categories)
}

func TestDecodeConfigAPIKeyPrecedence(t *testing.T) {
	s := secrets.Secrets{secrets.OpenAIAPIKey: "from-secrets"}

	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := decodeConfig(newTestViper(), s)
	require.NoError(t, err)
	assert.Equal(t, "from-secrets", cfg.Search.APIKey)

	t.Setenv("OPENAI_API_KEY", "from-env")
	cfg, err = decodeConfig(newTestViper(), s)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Search.APIKey)

	v := newTestViper()
	v.Set("search.api_key", "from-flag")
	cfg, err = decodeConfig(v, s)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Search.APIKey)
}

func TestBindFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "probe", RunE: func(*cobra.Command, []string) error { return nil }}
	addSearchFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"-k", "grasping", "-c", "cs.RO,cs.AI", "--from", "2024-01-01", "-n", "7"}))

	v := newTestViper()
	require.NoError(t, bindFlags(v, cmd, searchFlagKeys))
	cfg, err := decodeConfig(v, secrets.Secrets{})
	require.NoError(t, err)

	assert.Equal(t, "grasping", cfg.Search.Keyword)
	assert.Equal(t, []string{"cs.RO", "cs.AI"}, cfg.Search.Categories)
	assert.Equal(t, "2024-01-01", cfg.Search.DateFrom)
	assert.Equal(t, 7, cfg.Search.MaxResults)

	assert.Error(t, bindFlags(v, cmd, map[string]string{"nope": "x"}))
}

func TestPrintBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	printBatchSummary(&buf, "out", run.Summary{
		RunID:    "r",
		Outcome:  run.OutcomeCancelled,
		Counters: types.Counters{Discovered: 4, Downloaded: 3, TextExtracted: 2, Skipped: 1, DownloadFailed: 1, Summarized: 2},
	})
	assert.Equal(t,
		"\nBatch summary: 4 discovered, 3 downloaded, 2 with text, 1 skipped by date, 1 download failures, 2 summarized (cancelled)\n"+
			"Ledger: "+filepath.Join("out", "metadata.csv")+"\n",
		buf.String())

	buf.Reset()
	printBatchSummary(&buf, "out", run.Summary{})
	assert.Empty(t, buf.String())
}

type stubSource struct{ items []types.RawResult }

func (s stubSource) Name() string { return "stub" }

func (s stubSource) Open(string, int) search.Cursor { return &stubCursor{items: s.items} }

type stubCursor struct{ items []types.RawResult }

func (c *stubCursor) Next(context.Context) (types.RawResult, error) {
	if len(c.items) == 0 {
		return types.RawResult{}, io.EOF
	}
	r := c.items[0]
	c.items = c.items[1:]
	return r, nil
}

type stubDownloader struct{}

func (stubDownloader) Download(_ context.Context, _ string, dest string) error {
	return os.WriteFile(dest, []byte("%PDF"), 0o644)
}

type stubParser struct{}

func (stubParser) Inspect(string) (pdftext.Inspection, error) {
	return pdftext.Inspection{Pages: 3}, nil
}

func (stubParser) ExtractPages(string) ([]pdftext.PageResult, error) {
	return []pdftext.PageResult{{Number: 1, Text: "hello"}}, nil
}

func TestFetchAndLedger(t *testing.T) {
	dir := t.TempDir()
	ctrl := run.New(run.Deps{
		Source: stubSource{items: []types.RawResult{
			{ID: "2401.00001v1", Title: "First", PDFURL: "http://x/1", Published: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			{ID: "2401.00002v1", Title: "Second", PDFURL: "http://x/2", Published: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}},
		Downloader:   stubDownloader{},
		Parser:       stubParser{},
		OutputDir:    dir,
		SQLiteMirror: true,
	})
	cfg := types.SearchConfig{Categories: []string{"cs.RO"}, MaxResults: 5, Processing: types.DefaultProcessingOptions()}

	sum, err := fetch(context.Background(), ctrl, cfg)
	require.NoError(t, err)
	assert.Equal(t, run.OutcomeCompleted, sum.Outcome)
	assert.Equal(t, 2, sum.Counters.Downloaded)

	var view ledgerView
	view.Papers, err = ledger.ReadCSV(filepath.Join(dir, artifact.LedgerFile))
	require.NoError(t, err)
	view.Manifest, err = run.ReadManifest(filepath.Join(dir, artifact.ManifestFile))
	require.NoError(t, err)

	var table bytes.Buffer
	writeLedgerTable(&table, view)
	out := table.String()
	assert.Contains(t, out, "Run "+sum.RunID+" (completed)")
	assert.Contains(t, out, "ID  PUBLISHED")
	assert.Contains(t, out, "2024-01-02")
	assert.Contains(t, out, "Second")
	assert.Contains(t, out, "2 papers")

	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"encrypted":"false"`)
	assert.Contains(t, string(data), `"pages":3`)
	assert.Contains(t, string(data), `"run_id":"`+sum.RunID+`"`)
	assert.Contains(t, string(data), `"started_at":`)
	assert.NotContains(t, string(data), `"RunID"`)
}

type gatedDownloader struct {
	entered chan struct{}
	release chan struct{}
}

func (d gatedDownloader) Download(_ context.Context, _ string, dest string) error {
	d.entered <- struct{}{}
	<-d.release
	return os.WriteFile(dest, []byte("%PDF"), 0o644)
}

func TestCancelOnSignalReleasesSignal(t *testing.T) {
	dl := gatedDownloader{entered: make(chan struct{}, 3), release: make(chan struct{})}
	ctrl := run.New(run.Deps{
		Source: stubSource{items: []types.RawResult{
			{ID: "a", PDFURL: "http://x/a"},
			{ID: "b", PDFURL: "http://x/b"},
			{ID: "c", PDFURL: "http://x/c"},
		}},
		Downloader: dl,
		Parser:     stubParser{},
		OutputDir:  t.TempDir(),
	})
	cfg := types.SearchConfig{Categories: []string{"cs.RO"}, MaxResults: 3, Processing: types.DefaultProcessingOptions()}
	h, err := ctrl.Start(context.Background(), cfg)
	require.NoError(t, err)
	<-dl.entered

	sigCtx, fire := context.WithCancel(context.Background())
	fire()
	stopped := false
	cancelOnSignal(context.Background(), sigCtx, func() { stopped = true }, ctrl, h)
	assert.True(t, stopped, "signal handling is released once the run is cancelled")

	close(dl.release)
	sum, err := h.Wait()
	require.NoError(t, err)
	assert.Equal(t, run.OutcomeCancelled, sum.Outcome)
	assert.Equal(t, 1, sum.Counters.Downloaded)
}

func TestFetchRejectsInvalidConfig(t *testing.T) {
	ctrl := run.New(run.Deps{})
	sum, err := fetch(context.Background(), ctrl, types.SearchConfig{MaxResults: 1})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, sum.RunID)
}

func TestWriteLedgerTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	writeLedgerTable(&buf, ledgerView{})
	assert.Equal(t, "No papers recorded.\n", buf.String())
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcd...", clip("abcdefghij", 7))
}
