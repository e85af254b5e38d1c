// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact owns the on-disk layout of a run's output directory and
// the per-paper documents written into it.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

const (
	PDFDir      = "pdfs"
	SummaryDir  = "summaries"
	TextDir     = "extracted_text"
	AnalysisDir = "ai_analysis"

	LedgerFile   = "metadata.csv"
	SQLiteFile   = "ledger.db"
	ManifestFile = "run.yaml"
)

// Layout resolves artifact paths under one output root.
type Layout struct {
	Root string
}

// Create makes the directories a run with opts needs. The text and
// analysis directories exist only when their stages are enabled.
func (l Layout) Create(opts types.ProcessingOptions) error {
	dirs := []string{l.Root, l.dir(PDFDir), l.dir(SummaryDir)}
	if opts.ExtractText && opts.CreateTextArtifacts {
		dirs = append(dirs, l.dir(TextDir))
	}
	if opts.Summarize {
		dirs = append(dirs, l.dir(AnalysisDir))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	return nil
}

func (l Layout) dir(name string) string { return filepath.Join(l.Root, name) }

// PDFRoot returns the directory holding downloaded PDFs.
func (l Layout) PDFRoot() string { return l.dir(PDFDir) }

// PDFPath is pdfs/<key>.pdf.
func (l Layout) PDFPath(key string) string {
	return filepath.Join(l.Root, PDFDir, key+".pdf")
}

// TextPath is extracted_text/<key>_text.txt.
func (l Layout) TextPath(key string) string {
	return filepath.Join(l.Root, TextDir, key+"_text.txt")
}

// SummaryPath is summaries/<key>_summary.md.
func (l Layout) SummaryPath(key string) string {
	return filepath.Join(l.Root, SummaryDir, key+"_summary.md")
}

// AnalysisPath is ai_analysis/<key>_ai_<task>.md.
func (l Layout) AnalysisPath(key string, task types.SummaryTask) string {
	return filepath.Join(l.Root, AnalysisDir, key+"_ai_"+string(task)+".md")
}

// LedgerPath is the CSV ledger.
func (l Layout) LedgerPath() string { return l.dir(LedgerFile) }

// SQLitePath is the optional ledger mirror.
func (l Layout) SQLitePath() string { return l.dir(SQLiteFile) }

// ManifestPath is the run manifest.
func (l Layout) ManifestPath() string { return l.dir(ManifestFile) }

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

// Key names every artifact of one paper: the zero-padded sequence number
// and the source identifier made filesystem-safe ("007_2401.01234v1").
func Key(seq int, id string) string {
	id = keyReplacer.Replace(strings.TrimSpace(id))
	if id == "" {
		id = "paper"
	}
	return fmt.Sprintf("%03d_%s", seq, id)
}
