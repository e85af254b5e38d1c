// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package process runs one search result through download, inspection,
// extraction, artifact writing, optional summarization and the ledger.
// Every stage but the ledger append degrades to a warning; a paper whose
// PDF could not be downloaded gets no ledger row.
package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/paper-fetcher/internal/artifact"
	"github.com/pdiddy/paper-fetcher/internal/ledger"
	"github.com/pdiddy/paper-fetcher/internal/pdftext"
	"github.com/pdiddy/paper-fetcher/internal/summarize"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Downloader fetches a PDF to a local path.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// Summarizer runs one summarization task over a paper's text.
type Summarizer interface {
	Summarize(ctx context.Context, task types.SummaryTask, title, text string) (string, error)
	Model() string
}

// Processor holds everything one paper needs. A nil Summarizer disables
// the summarize stage regardless of Options.
type Processor struct {
	Downloader Downloader
	Parser     pdftext.Parser
	Summarizer Summarizer
	Layout     artifact.Layout
	Ledger     ledger.Sink
	Options    types.ProcessingOptions
	Task       types.SummaryTask
	Reporter   types.Reporter

	// Now stamps analysis documents. Nil means time.Now.
	Now func() time.Time
}

// Outcome is what processing one paper produced.
type Outcome struct {
	// Record is the ledger row; valid only when Downloaded.
	Record types.PaperRecord

	Downloaded    bool
	TextExtracted bool
	Summarized    bool

	// Warnings holds the non-fatal failures: *StageError and *summarize.Error.
	Warnings []error
}

// Process runs raw through every stage under sequence number seq. The
// returned error is non-nil only when the ledger append failed.
func (p *Processor) Process(ctx context.Context, seq int, raw types.RawResult) (Outcome, error) {
	var out Outcome
	key := artifact.Key(seq, raw.ID)
	pdfPath := p.Layout.PDFPath(key)

	// Download.
	p.info(StageDownload, seq, raw.ID, "downloading "+raw.PDFURL)
	if err := p.Downloader.Download(ctx, raw.PDFURL, pdfPath); err != nil {
		p.warn(&out, &StageError{Stage: StageDownload, PaperID: raw.ID, Err: err}, seq)
		return out, nil
	}
	out.Downloaded = true
	rec := types.NewPaperRecord(seq, raw)
	p.info(StageDownload, seq, raw.ID, "downloaded "+key+".pdf")

	// Inspect.
	insp, err := p.Parser.Inspect(pdfPath)
	if err != nil {
		p.warn(&out, &StageError{Stage: StageInspect, PaperID: raw.ID, Err: err}, seq)
	} else {
		rec.Pages = insp.Pages
		rec.Encrypted = types.FlagOf(insp.Encrypted)
		p.info(StageInspect, seq, raw.ID, fmt.Sprintf("%s pages", rec.PagesString()))
		if insp.Encrypted && p.Options.CheckEncryption {
			p.report(types.LevelWarn, StageInspect, seq, raw.ID, "PDF is encrypted, text extraction skipped")
		}
	}

	// Extract.
	var text string
	switch {
	case !p.Options.ExtractText:
		p.info(StageExtract, seq, raw.ID, "skipped: extraction disabled")
	case rec.Encrypted == types.FlagTrue:
		p.info(StageExtract, seq, raw.ID, "skipped: encrypted PDF")
	default:
		text = p.extract(&out, seq, raw.ID, pdfPath)
		rec.TextExtracted = text != ""
	}
	out.TextExtracted = rec.TextExtracted

	// Persist.
	if rec.TextExtracted && p.Options.CreateTextArtifacts {
		if err := artifact.WriteFile(p.Layout.TextPath(key), []byte(text)); err != nil {
			p.warn(&out, &StageError{Stage: StagePersist, PaperID: raw.ID, Err: err}, seq)
		} else {
			p.info(StagePersist, seq, raw.ID, "text saved")
		}
	}
	summary := artifact.RenderSummary(artifact.SummaryInput{
		Raw:            raw,
		Pages:          rec.Pages,
		Encrypted:      rec.Encrypted,
		ShowEncryption: p.Options.CheckEncryption,
	})
	if err := artifact.WriteFile(p.Layout.SummaryPath(key), []byte(summary)); err != nil {
		p.warn(&out, &StageError{Stage: StagePersist, PaperID: raw.ID, Err: err}, seq)
	} else {
		p.info(StagePersist, seq, raw.ID, "summary written")
	}

	// Summarize.
	if p.Options.Summarize && p.Summarizer != nil && rec.TextExtracted {
		out.Summarized = p.summarize(ctx, &out, seq, key, raw, text)
	}

	// Record.
	if err := p.Ledger.Append(rec); err != nil {
		p.report(types.LevelError, StageRecord, seq, raw.ID, "ledger append failed: "+Excerpt(err))
		return out, err
	}
	out.Record = rec
	p.info(StageRecord, seq, raw.ID, "recorded")
	return out, nil
}

// extract returns the joined page text, or "" when no page produced any.
func (p *Processor) extract(out *Outcome, seq int, id, path string) string {
	pages, err := p.Parser.ExtractPages(path)
	if err != nil {
		p.warn(out, &StageError{Stage: StageExtract, PaperID: id, Err: err}, seq)
		return ""
	}
	for _, fp := range pdftext.FailedPages(pages) {
		p.report(types.LevelWarn, StageExtract, seq, id,
			fmt.Sprintf("page %d: %s", fp.Number, Excerpt(fp.Err)))
	}
	if !pdftext.HasText(pages) {
		p.info(StageExtract, seq, id, "no text found")
		return ""
	}
	p.info(StageExtract, seq, id, fmt.Sprintf("extracted text from %d pages", len(pages)))
	return pdftext.JoinPages(pages)
}

func (p *Processor) summarize(ctx context.Context, out *Outcome, seq int, key string, raw types.RawResult, text string) bool {
	task := p.Task
	if task == "" {
		task = types.TaskSummarize
	}
	p.info(StageSummarize, seq, raw.ID, "requesting "+string(task))

	result, err := p.Summarizer.Summarize(ctx, task, raw.Title, text)
	if err != nil {
		se := summarize.Classify(err)
		out.Warnings = append(out.Warnings, se)
		p.report(types.LevelWarn, StageSummarize, seq, raw.ID,
			fmt.Sprintf("%s: %s", se.Hint(), Excerpt(se.Err)))
		return false
	}

	doc := artifact.RenderAnalysis(artifact.AnalysisInput{
		Title:     raw.Title,
		Task:      task,
		Model:     p.Summarizer.Model(),
		Generated: p.now(),
		Text:      result,
	})
	if err := artifact.WriteFile(p.Layout.AnalysisPath(key, task), []byte(doc)); err != nil {
		p.warn(out, &StageError{Stage: StagePersist, PaperID: raw.ID, Err: err}, seq)
		return false
	}
	p.info(StageSummarize, seq, raw.ID, "analysis saved")
	return true
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) warn(out *Outcome, err *StageError, seq int) {
	out.Warnings = append(out.Warnings, err)
	p.report(types.LevelWarn, err.Stage, seq, err.PaperID, Excerpt(errors.Unwrap(err)))
}

func (p *Processor) info(stage Stage, seq int, id, msg string) {
	p.report(types.LevelInfo, stage, seq, id, msg)
}

func (p *Processor) report(level types.Level, stage Stage, seq int, id, msg string) {
	if p.Reporter == nil {
		return
	}
	p.Reporter.Report(types.Event{
		Level:   level,
		Stage:   stage.String(),
		Seq:     seq,
		PaperID: id,
		Message: msg,
	})
}
