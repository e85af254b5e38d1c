// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// SummaryInput carries what the summary template shows for one paper.
type SummaryInput struct {
	Raw       types.RawResult
	Pages     int
	Encrypted types.Flag

	// ShowEncryption adds the PDF status line.
	ShowEncryption bool
}

// RenderSummary builds the per-paper notes document: metadata header, the
// abstract and empty sections for manual notes.
func RenderSummary(in SummaryInput) string {
	r := in.Raw
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", orDash(r.Title))
	fmt.Fprintf(&b, "**Authors:** %s\n", orDash(strings.Join(r.Authors, ", ")))
	published := "-"
	if !r.Published.IsZero() {
		published = r.Published.UTC().Format(types.DateLayout)
	}
	fmt.Fprintf(&b, "**Published:** %s\n", published)
	fmt.Fprintf(&b, "**arXiv URL:** %s\n", orDash(r.EntryURL))
	fmt.Fprintf(&b, "**PDF URL:** %s\n", orDash(r.PDFURL))
	fmt.Fprintf(&b, "**Categories:** %s\n", orDash(strings.Join(r.Categories, ", ")))
	if in.Pages >= 0 {
		fmt.Fprintf(&b, "**Pages:** %d\n", in.Pages)
	} else {
		b.WriteString("**Pages:** unknown\n")
	}
	if in.ShowEncryption {
		fmt.Fprintf(&b, "**PDF Status:** %s\n", encryptionStatus(in.Encrypted))
	}

	b.WriteString("\n## Abstract\n\n")
	b.WriteString(orDash(r.Abstract))
	b.WriteString("\n")

	for _, section := range []string{"Summary", "What I Learned", "How It Can Be Improved", "Ideas for Extension"} {
		fmt.Fprintf(&b, "\n## %s\n\n", section)
		b.WriteString("...\n")
	}
	return b.String()
}

func encryptionStatus(f types.Flag) string {
	switch f {
	case types.FlagTrue:
		return "Encrypted"
	case types.FlagFalse:
		return "Not encrypted"
	default:
		return "Unknown"
	}
}

// AnalysisInput carries one summarization result.
type AnalysisInput struct {
	Title     string
	Task      types.SummaryTask
	Model     string
	Generated time.Time
	Text      string
}

// TaskTitle is the human heading for a task ("find_methodology" → "Find Methodology").
func TaskTitle(task types.SummaryTask) string {
	words := strings.Split(string(task), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// RenderAnalysis builds the analysis document for one summarization call.
func RenderAnalysis(in AnalysisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# AI Analysis: %s\n\n", TaskTitle(in.Task))
	fmt.Fprintf(&b, "**Paper:** %s\n", orDash(in.Title))
	fmt.Fprintf(&b, "**Analysis Type:** %s\n", in.Task)
	if in.Model != "" {
		fmt.Fprintf(&b, "**Model:** %s\n", in.Model)
	}
	fmt.Fprintf(&b, "**Generated:** %s\n", in.Generated.Format("2006-01-02 15:04:05"))
	b.WriteString("\n---\n\n## AI Analysis\n\n")
	b.WriteString(strings.TrimSpace(in.Text))
	b.WriteString("\n")
	return b.String()
}

// WriteFile writes data to path through a temporary file in the same
// directory and renames it into place.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
