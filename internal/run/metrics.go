// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/paper-fetcher/internal/process"
	"github.com/pdiddy/paper-fetcher/internal/summarize"
)

const metricsNamespace = "paper_fetcher"

// Metrics holds the Prometheus collectors a Controller updates. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	PapersDiscovered    prometheus.Counter
	PapersDownloaded    prometheus.Counter
	PapersTextExtracted prometheus.Counter
	PapersSkipped       prometheus.Counter
	PapersSummarized    prometheus.Counter

	// StageFailures counts non-fatal per-paper failures by stage.
	StageFailures *prometheus.CounterVec

	// SummarizeFailures counts summarization failures by class.
	SummarizeFailures *prometheus.CounterVec

	// Runs counts finished runs by outcome.
	Runs *prometheus.CounterVec

	RunDuration prometheus.Histogram
}

// NewMetrics registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry so registrations never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PapersDiscovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "papers_discovered_total",
			Help:      "Search results that passed the date filter and entered processing",
		}),
		PapersDownloaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "papers_downloaded_total",
			Help:      "PDFs downloaded and recorded in the ledger",
		}),
		PapersTextExtracted: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "papers_text_extracted_total",
			Help:      "Papers that yielded non-empty text",
		}),
		PapersSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "papers_skipped_total",
			Help:      "Search results dropped by the date filter",
		}),
		PapersSummarized: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "papers_summarized_total",
			Help:      "Analysis documents written",
		}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stage_failures_total",
			Help:      "Non-fatal per-paper failures by stage",
		}, []string{"stage"}),
		SummarizeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "summarize_failures_total",
			Help:      "Summarization failures by class",
		}, []string{"class"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func (m *Metrics) discovered() {
	if m != nil {
		m.PapersDiscovered.Inc()
	}
}

func (m *Metrics) skipped(n int) {
	if m != nil && n > 0 {
		m.PapersSkipped.Add(float64(n))
	}
}

func (m *Metrics) outcome(out process.Outcome) {
	if m == nil {
		return
	}
	if out.Downloaded {
		m.PapersDownloaded.Inc()
	}
	if out.TextExtracted {
		m.PapersTextExtracted.Inc()
	}
	if out.Summarized {
		m.PapersSummarized.Inc()
	}
	for _, w := range out.Warnings {
		var se *process.StageError
		var sumErr *summarize.Error
		switch {
		case errors.As(w, &se):
			m.StageFailures.WithLabelValues(se.Stage.String()).Inc()
		case errors.As(w, &sumErr):
			m.SummarizeFailures.WithLabelValues(string(sumErr.Class)).Inc()
		}
	}
}

func (m *Metrics) finished(outcome Outcome, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(string(outcome)).Inc()
	m.RunDuration.Observe(seconds)
}
