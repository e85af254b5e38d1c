// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext inspects downloaded PDFs and extracts their text page by
// page. The parsing itself is delegated to a Parser.
package pdftext

import (
	"fmt"
	"strings"
)

// Inspection is what a parser learns from opening a document.
type Inspection struct {
	// Pages is the page count, or types.PagesUnknown when the document
	// could not be opened far enough to count.
	Pages int

	Encrypted bool
}

// PageResult is the outcome of extracting one page. A failed page carries
// Err and empty Text.
type PageResult struct {
	Number int
	Text   string
	Err    error
}

// Parser is the PDF-parsing capability the pipeline calls.
type Parser interface {
	// Inspect reports page count and encryption.
	Inspect(path string) (Inspection, error)

	// ExtractPages returns one result per page. A non-nil error means the
	// document as a whole could not be read.
	ExtractPages(path string) ([]PageResult, error)
}

// JoinPages concatenates page texts with a boundary marker before each
// page. Failed pages contribute their marker and empty text.
func JoinPages(pages []PageResult) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", p.Number, p.Text)
	}
	return b.String()
}

// HasText reports whether any page produced non-blank text.
func HasText(pages []PageResult) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// FailedPages returns the results that carry an error.
func FailedPages(pages []PageResult) []PageResult {
	var out []PageResult
	for _, p := range pages {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}
