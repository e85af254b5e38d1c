// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileReport is the inspection result for one PDF on disk.
type FileReport struct {
	Name      string `json:"name"`
	Pages     int    `json:"pages"`
	Encrypted bool   `json:"encrypted"`
	Error     string `json:"error,omitempty"`
}

// DirReport totals an AnalyzeDir run.
type DirReport struct {
	Files     []FileReport `json:"files"`
	Encrypted int          `json:"encrypted"`
	Pages     int          `json:"pages"`
	Failed    int          `json:"failed"`
}

// Total returns the number of PDFs examined.
func (r DirReport) Total() int { return len(r.Files) }

// AnalyzeDir inspects every *.pdf directly under dir in name order,
// printing one status line per file and a summary to w.
func AnalyzeDir(p Parser, dir string, w io.Writer) (DirReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return DirReport{}, fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var report DirReport
	for _, name := range names {
		fr := FileReport{Name: name}
		insp, err := p.Inspect(filepath.Join(dir, name))
		if err != nil {
			fr.Pages = -1
			fr.Error = err.Error()
			report.Failed++
			fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
			report.Files = append(report.Files, fr)
			continue
		}
		fr.Pages = insp.Pages
		fr.Encrypted = insp.Encrypted
		if insp.Encrypted {
			report.Encrypted++
		}
		if insp.Pages > 0 {
			report.Pages += insp.Pages
		}
		status := "not encrypted"
		if insp.Encrypted {
			status = "encrypted"
		}
		pages := "unknown"
		if insp.Pages >= 0 {
			pages = fmt.Sprintf("%d", insp.Pages)
		}
		fmt.Fprintf(w, "%s: %s pages, %s\n", name, pages, status)
		report.Files = append(report.Files, fr)
	}

	fmt.Fprintf(w, "\nBatch summary: %d PDFs, %d encrypted, %d pages, %d failed\n",
		report.Total(), report.Encrypted, report.Pages, report.Failed)
	return report, nil
}
