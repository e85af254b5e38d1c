// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// SQLiteSink mirrors ledger rows into ledger.db, keyed by run, so several
// runs against one output root stay queryable side by side.
type SQLiteSink struct {
	db    *sql.DB
	path  string
	runID string
}

// OpenSQLite opens or creates the database at path, creates the schema if
// it does not exist and registers runID as a started run.
func OpenSQLite(path, runID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_synchronous=FULL")
	if err != nil {
		return nil, writeErr(path, "open", err)
	}
	s := &SQLiteSink{db: db, path: path, runID: runID}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, writeErr(path, "create schema", err)
	}
	if _, err := db.Exec(
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		db.Close()
		return nil, writeErr(path, "register run", err)
	}
	return s, nil
}

func (s *SQLiteSink) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			outcome TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			run_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			title TEXT,
			authors TEXT,
			published TEXT,
			pdf_url TEXT,
			entry_url TEXT,
			abstract TEXT,
			pages INTEGER,
			encrypted TEXT,
			text_extracted INTEGER,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_published ON papers(published)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Append inserts rec under the sink's run.
func (s *SQLiteSink) Append(rec types.PaperRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO papers (run_id, seq, title, authors, published, pdf_url, entry_url, abstract, pages, encrypted, text_extracted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, rec.Seq, rec.Title, rec.Authors, rec.Published, rec.PDFURL, rec.EntryURL,
		rec.Abstract, rec.Pages, rec.Encrypted.String(), rec.TextExtracted,
	)
	if err != nil {
		return writeErr(s.path, "append", err)
	}
	return nil
}

// Finish stamps the run's end time and outcome.
func (s *SQLiteSink) Finish(outcome string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, outcome = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), outcome, s.runID,
	)
	if err != nil {
		return writeErr(s.path, "finish run", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteSink) Close() error {
	if err := s.db.Close(); err != nil {
		return writeErr(s.path, "close", err)
	}
	return nil
}

// RunInfo is one row of the runs table.
type RunInfo struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Papers     int    `json:"papers"`
}

// ReadSQLite returns the runs recorded in the database at path, newest
// first, and the records of runID. An empty runID selects the newest run.
func ReadSQLite(path, runID string) ([]RunInfo, []types.PaperRecord, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT r.id, r.started_at, COALESCE(r.finished_at, ''), COALESCE(r.outcome, ''), COUNT(p.seq)
		FROM runs r LEFT JOIN papers p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.rowid DESC`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying runs: %w", err)
	}
	var runs []RunInfo
	for rows.Next() {
		var ri RunInfo
		if err := rows.Scan(&ri.ID, &ri.StartedAt, &ri.FinishedAt, &ri.Outcome, &ri.Papers); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, ri)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating runs: %w", err)
	}

	if runID == "" {
		if len(runs) == 0 {
			return runs, nil, nil
		}
		runID = runs[0].ID
	}

	prows, err := db.Query(`
		SELECT seq, title, authors, published, pdf_url, entry_url, abstract, pages, encrypted, text_extracted
		FROM papers WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return runs, nil, fmt.Errorf("querying papers: %w", err)
	}
	defer prows.Close()

	var records []types.PaperRecord
	for prows.Next() {
		var rec types.PaperRecord
		var encrypted string
		if err := prows.Scan(&rec.Seq, &rec.Title, &rec.Authors, &rec.Published, &rec.PDFURL,
			&rec.EntryURL, &rec.Abstract, &rec.Pages, &encrypted, &rec.TextExtracted); err != nil {
			return runs, nil, fmt.Errorf("scanning paper: %w", err)
		}
		rec.Encrypted = types.ParseFlag(encrypted)
		records = append(records, rec)
	}
	return runs, records, prows.Err()
}
