// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-fetcher pipeline:
// the run input (SearchConfig), the search API's entries (RawResult), the
// ledger rows (PaperRecord) and the progress events a run emits.
package types

import "time"

// RawResult is one untouched entry returned by the search API.
type RawResult struct {
	// ID is the source identifier including any version suffix (e.g. "2401.01234v1").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the first submission date.
	Published time.Time `json:"published" yaml:"published"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// PDFURL is the location of the PDF.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// EntryURL is the canonical abstract page.
	EntryURL string `json:"entry_url" yaml:"entry_url"`

	// Categories lists the category tags attached to the entry.
	Categories []string `json:"categories" yaml:"categories"`
}
