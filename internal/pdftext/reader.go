// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdftext

import (
	"errors"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Reader is the Parser backed by github.com/ledongthuc/pdf.
type Reader struct{}

// NewReader returns a Reader.
func NewReader() *Reader { return &Reader{} }

// Inspect opens the document and reads its page tree and trailer. A PDF
// that needs a password to open is reported as encrypted with an unknown
// page count.
func (Reader) Inspect(path string) (insp Inspection, err error) {
	defer recoverInto(&err, "inspecting PDF")

	f, r, err := pdf.Open(path)
	if err != nil {
		closeQuietly(f)
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return Inspection{Pages: types.PagesUnknown, Encrypted: true}, nil
		}
		return Inspection{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	return Inspection{
		Pages:     r.NumPage(),
		Encrypted: !r.Trailer().Key("Encrypt").IsNull(),
	}, nil
}

// ExtractPages reads the plain text of every page. A page that fails,
// including by panicking inside the parser, yields an error result and
// the remaining pages are still read.
func (Reader) ExtractPages(path string) (pages []PageResult, err error) {
	defer recoverInto(&err, "extracting PDF")

	f, r, err := pdf.Open(path)
	if err != nil {
		closeQuietly(f)
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]PageResult, 0, n)
	for i := 1; i <= n; i++ {
		text, perr := pageText(r, i)
		pages = append(pages, PageResult{Number: i, Text: text, Err: perr})
	}
	return pages, nil
}

func pageText(r *pdf.Reader, i int) (text string, err error) {
	defer recoverInto(&err, fmt.Sprintf("page %d", i))

	p := r.Page(i)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", i)
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", i, err)
	}
	return text, nil
}

func closeQuietly(f *os.File) {
	if f != nil {
		f.Close()
	}
}

func recoverInto(err *error, what string) {
	if rec := recover(); rec != nil {
		*err = fmt.Errorf("%s: parser panic: %v", what, rec)
	}
}
