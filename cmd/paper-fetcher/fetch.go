// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetcher/internal/acquire"
	"github.com/pdiddy/paper-fetcher/internal/observability"
	"github.com/pdiddy/paper-fetcher/internal/pdftext"
	"github.com/pdiddy/paper-fetcher/internal/process"
	"github.com/pdiddy/paper-fetcher/internal/run"
	"github.com/pdiddy/paper-fetcher/internal/search"
	"github.com/pdiddy/paper-fetcher/internal/summarize"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Search arXiv and download, inspect and record matching papers",
	Long: `Fetch compiles the category, keyword and date flags into an arXiv query,
streams the results newest first and processes each paper in turn: download
the PDF, count pages, detect encryption, extract text, write the summary
template and optionally ask the summarization service for an analysis.

Every downloaded paper gets one row in <output>/metadata.csv, written as soon
as the paper is done. Interrupting the command (Ctrl-C) stops after the
current paper and leaves a complete ledger of the papers processed so far.`,
	RunE: runFetch,
}

var fetchFlagKeys = map[string]string{
	"extract-text":     "search.processing.extract_text",
	"check-encryption": "search.processing.check_encryption",
	"text-artifacts":   "search.processing.create_text_artifacts",
	"summarize":        "search.processing.summarize",
	"task":             "search.task",
	"api-key":          "search.api_key",
	"model":            "summarizer.model",
	"base-url":         "summarizer.base_url",
	"sqlite":           "output.sqlite_mirror",
	"timeout":          "download.timeout",
}

func init() {
	addSearchFlags(fetchCmd)
	f := fetchCmd.Flags()
	f.Bool("extract-text", true, "extract text from each PDF")
	f.Bool("check-encryption", true, "warn about encrypted PDFs and note their status in summaries")
	f.Bool("text-artifacts", true, "write extracted text to extracted_text/")
	f.Bool("summarize", false, "send extracted text to the summarization service")
	f.String("task", "", "summarization task: summarize, extract_keywords, find_methodology, identify_gaps")
	f.String("api-key", "", "summarization service API key")
	f.String("model", "", "summarization model (default gpt-3.5-turbo)")
	f.String("base-url", "", "OpenAI-compatible endpoint for summarization")
	f.Bool("sqlite", false, "also record ledger rows in ledger.db")
	f.Duration("timeout", 0, "PDF download timeout (default 60s)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address while the run is active (e.g. :9090)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, searchFlagKeys); err != nil {
		return err
	}
	if err := bindFlags(v, cmd, fetchFlagKeys); err != nil {
		return err
	}
	cfg, err := decodeConfig(v, loadedSecrets)
	if err != nil {
		return err
	}
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	logger := observability.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx)

	reg := prometheus.NewRegistry()
	metrics := run.NewMetrics(reg)
	if metricsAddr != "" {
		stop, err := serveMetrics(metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	ctrl := run.New(newDeps(cfg),
		run.WithSink(observability.LogSink(logger)),
		run.WithMetrics(metrics),
	)
	sum, err := fetch(ctx, ctrl, cfg.Search)
	printBatchSummary(cmd.OutOrStdout(), cfg.Output.Dir, sum)
	return err
}

// newDeps wires the production collaborators.
func newDeps(cfg types.AppConfig) run.Deps {
	return run.Deps{
		Source:     search.NewArxivSource(cfg.Arxiv),
		Downloader: acquire.NewDownloader(cfg.Download),
		Parser:     pdftext.NewReader(),
		NewSummarizer: func(ctx context.Context, apiKey string) (process.Summarizer, error) {
			b, err := summarize.NewOpenAIBackend(ctx, cfg.Summarizer, apiKey)
			if err != nil {
				return nil, err
			}
			return summarize.New(b, cfg.Summarizer), nil
		},
		OutputDir:    cfg.Output.Dir,
		SQLiteMirror: cfg.Output.SQLiteMirror,
	}
}

// fetch starts a run and waits for it, turning SIGINT and SIGTERM into a
// cooperative cancel.
func fetch(ctx context.Context, ctrl *run.Controller, cfg types.SearchConfig) (run.Summary, error) {
	h, err := ctrl.Start(ctx, cfg)
	if err != nil {
		return run.Summary{}, err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cancelOnSignal(ctx, sigCtx, stop, ctrl, h)
	return h.Wait()
}

// cancelOnSignal cancels h when sigCtx ends, then releases the signal so a
// second interrupt terminates the process.
func cancelOnSignal(ctx, sigCtx context.Context, stop func(), ctrl *run.Controller, h *run.Handle) {
	select {
	case <-sigCtx.Done():
		zerolog.Ctx(ctx).Warn().Msg("interrupt received, stopping after the current paper (interrupt again to quit)")
		ctrl.Cancel(h)
		stop()
	case <-h.Done():
	}
}

func printBatchSummary(w io.Writer, dir string, sum run.Summary) {
	if sum.RunID == "" {
		return
	}
	c := sum.Counters
	fmt.Fprintf(w, "\nBatch summary: %d discovered, %d downloaded, %d with text, %d skipped by date, %d download failures",
		c.Discovered, c.Downloaded, c.TextExtracted, c.Skipped, c.DownloadFailed)
	if c.Summarized > 0 {
		fmt.Fprintf(w, ", %d summarized", c.Summarized)
	}
	fmt.Fprintf(w, " (%s)\n", sum.Outcome)
	fmt.Fprintf(w, "Ledger: %s\n", ledgerPathOf(dir))
}

// serveMetrics exposes reg on addr until the returned stop is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening for metrics on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}
