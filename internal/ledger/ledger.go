// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records one row per downloaded paper. Every Append is on
// stable storage before it returns, so an interrupted run leaves a
// readable ledger of the papers finished so far.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Header is the fixed column schema of the CSV ledger.
var Header = []string{
	"ID", "Title", "Authors", "Published", "PDF_URL", "arXiv_URL",
	"Abstract", "Pages", "Encrypted", "Text_Extracted",
}

// Sink is an append-only record store.
type Sink interface {
	Append(rec types.PaperRecord) error
	Close() error
}

// WriteError reports a ledger that could not be opened or written. It is
// fatal for the run.
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func writeErr(path, op string, err error) error {
	var we *WriteError
	if errors.As(err, &we) {
		return err
	}
	return &WriteError{Path: path, Op: op, Err: err}
}

// multi fans each call out to every sink in order.
type multi []Sink

// Multi returns a Sink that appends to each of sinks in order and stops at
// the first failure.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Append(rec types.PaperRecord) error {
	for _, s := range m {
		if err := s.Append(rec); err != nil {
			return writeErr("", "append", err)
		}
	}
	return nil
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Row renders rec in Header order.
func Row(rec types.PaperRecord) []string {
	return []string{
		strconv.Itoa(rec.Seq),
		rec.Title,
		rec.Authors,
		rec.Published,
		rec.PDFURL,
		rec.EntryURL,
		rec.Abstract,
		rec.PagesString(),
		rec.Encrypted.String(),
		strconv.FormatBool(rec.TextExtracted),
	}
}

// ParseRow is the inverse of Row.
func ParseRow(row []string) (types.PaperRecord, error) {
	if len(row) != len(Header) {
		return types.PaperRecord{}, fmt.Errorf("expected %d columns, got %d", len(Header), len(row))
	}
	seq, err := strconv.Atoi(row[0])
	if err != nil {
		return types.PaperRecord{}, fmt.Errorf("parsing ID %q: %w", row[0], err)
	}
	pages := types.PagesUnknown
	if p, err := strconv.Atoi(row[7]); err == nil {
		pages = p
	}
	extracted, _ := strconv.ParseBool(strings.TrimSpace(row[9]))
	return types.PaperRecord{
		Seq:           seq,
		Title:         row[1],
		Authors:       row[2],
		Published:     row[3],
		PDFURL:        row[4],
		EntryURL:      row[5],
		Abstract:      row[6],
		Pages:         pages,
		Encrypted:     types.ParseFlag(row[8]),
		TextExtracted: extracted,
	}, nil
}
