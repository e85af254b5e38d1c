// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// CSVSink is the primary ledger: metadata.csv in the run's output root.
type CSVSink struct {
	path string
	f    *os.File
	w    *csv.Writer
}

// OpenCSV creates (or truncates) the ledger at path and writes the header.
func OpenCSV(path string) (*CSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, writeErr(path, "open", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, writeErr(path, "open", err)
	}
	s := &CSVSink{path: path, f: f, w: csv.NewWriter(f)}
	if err := s.write(Header); err != nil {
		f.Close()
		return nil, writeErr(path, "write header", err)
	}
	return s, nil
}

// Append writes one row and syncs the file.
func (s *CSVSink) Append(rec types.PaperRecord) error {
	if s.f == nil {
		return writeErr(s.path, "append", os.ErrClosed)
	}
	if err := s.write(Row(rec)); err != nil {
		return writeErr(s.path, "append", err)
	}
	return nil
}

func (s *CSVSink) write(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	return s.f.Sync()
}

// Close flushes and closes the file. Closing twice is a no-op.
func (s *CSVSink) Close() error {
	if s.f == nil {
		return nil
	}
	s.w.Flush()
	flushErr := s.w.Error()
	closeErr := s.f.Close()
	s.f = nil
	if err := errors.Join(flushErr, closeErr); err != nil {
		return writeErr(s.path, "close", err)
	}
	return nil
}

// ReadCSV loads a ledger written by CSVSink.
func ReadCSV(path string) ([]types.PaperRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("ledger %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger header: %w", err)
	}
	if header[0] != Header[0] {
		return nil, fmt.Errorf("ledger %s has unexpected header %q", path, header)
	}

	var records []types.PaperRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("reading ledger row: %w", err)
		}
		rec, err := ParseRow(row)
		if err != nil {
			return records, fmt.Errorf("parsing ledger row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
}
