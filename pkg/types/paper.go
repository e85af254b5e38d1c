// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// PagesUnknown is the PaperRecord.Pages sentinel when inspection failed.
const PagesUnknown = -1

// AbstractLimit is the number of abstract characters kept in a ledger row.
const AbstractLimit = 500

// Flag is a boolean that may also be unknown.
type Flag int8

const (
	FlagUnknown Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts a known boolean.
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// String renders the flag as it appears in the ledger.
func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return "unknown"
	}
}

// ParseFlag is the inverse of Flag.String.
func ParseFlag(s string) Flag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return FlagTrue
	case "false":
		return FlagFalse
	default:
		return FlagUnknown
	}
}

// MarshalText renders the flag as its ledger string in JSON and YAML.
func (f Flag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText parses a ledger string.
func (f *Flag) UnmarshalText(b []byte) error {
	*f = ParseFlag(string(b))
	return nil
}

// PaperRecord is the durable ledger row for one downloaded paper. It is
// built once after the last stage and never modified afterwards.
type PaperRecord struct {
	// Seq is the 1-based, dense position in processing order.
	Seq int `json:"seq" yaml:"seq"`

	Title string `json:"title" yaml:"title"`

	// Authors is the comma-joined author list.
	Authors string `json:"authors" yaml:"authors"`

	// Published is the publication date in YYYY-MM-DD format.
	Published string `json:"published" yaml:"published"`

	PDFURL   string `json:"pdf_url" yaml:"pdf_url"`
	EntryURL string `json:"entry_url" yaml:"entry_url"`

	// Abstract is truncated to AbstractLimit characters.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Pages is the page count or PagesUnknown.
	Pages int `json:"pages" yaml:"pages"`

	Encrypted     Flag `json:"encrypted" yaml:"encrypted"`
	TextExtracted bool `json:"text_extracted" yaml:"text_extracted"`
}

// PagesString renders Pages as it appears in the ledger.
func (r PaperRecord) PagesString() string {
	if r.Pages < 0 {
		return "unknown"
	}
	return strconv.Itoa(r.Pages)
}

// NewPaperRecord builds the ledger row for raw. Inspection and extraction
// results are filled in by the caller.
func NewPaperRecord(seq int, raw RawResult) PaperRecord {
	published := ""
	if !raw.Published.IsZero() {
		published = raw.Published.UTC().Format(DateLayout)
	}
	return PaperRecord{
		Seq:       seq,
		Title:     raw.Title,
		Authors:   strings.Join(raw.Authors, ", "),
		Published: published,
		PDFURL:    raw.PDFURL,
		EntryURL:  raw.EntryURL,
		Abstract:  TruncateAbstract(raw.Abstract),
		Pages:     PagesUnknown,
		Encrypted: FlagUnknown,
	}
}

// TruncateAbstract keeps the first AbstractLimit characters and marks the
// cut with "...".
func TruncateAbstract(s string) string {
	if utf8.RuneCountInString(s) <= AbstractLimit {
		return s
	}
	return string([]rune(s)[:AbstractLimit]) + "..."
}
