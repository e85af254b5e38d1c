// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-fetcher/internal/httputil"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const (
	defaultPageSize = 100
	maxPageSize     = 200

	// arXiv asks clients to space API calls at least three seconds apart.
	defaultPageDelay = 3 * time.Second
)

// ArxivSource queries the arXiv Atom API.
type ArxivSource struct {
	client    *http.Client
	base      string
	userAgent string
	pageSize  int
	limiter   *rate.Limiter
}

// NewArxivSource builds a source from cfg. Zero values fall back to the
// public endpoint, 100 results per page and a three second page spacing.
func NewArxivSource(cfg types.ArxivConfig) *ArxivSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)
	delay := cfg.PageDelay
	if delay <= 0 {
		delay = defaultPageDelay
	}
	return &ArxivSource{
		client:    &http.Client{Timeout: timeout},
		base:      cfg.APIBase,
		userAgent: cfg.UserAgent,
		pageSize:  pageSize,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Name returns the source identifier.
func (s *ArxivSource) Name() string { return "arxiv" }

// Open returns a cursor that fetches pages on demand.
func (s *ArxivSource) Open(query string, max int) Cursor {
	return &arxivCursor{src: s, query: query, max: max}
}

type arxivCursor struct {
	src   *ArxivSource
	query string
	max   int

	start int
	total int // -1 until the first page reports it
	buf   []types.RawResult
	done  bool
}

// Next returns the next buffered result, fetching a page when the buffer
// is empty.
func (c *arxivCursor) Next(ctx context.Context) (types.RawResult, error) {
	if len(c.buf) == 0 {
		if c.done || c.start >= c.max {
			return types.RawResult{}, io.EOF
		}
		if err := c.fetch(ctx); err != nil {
			return types.RawResult{}, err
		}
		if len(c.buf) == 0 {
			c.done = true
			return types.RawResult{}, io.EOF
		}
	}
	r := c.buf[0]
	c.buf = c.buf[1:]
	return r, nil
}

func (c *arxivCursor) fetch(ctx context.Context) error {
	if err := c.src.limiter.Wait(ctx); err != nil {
		return err
	}

	n := min(c.src.pageSize, c.max-c.start)
	base := c.src.base
	if base == "" {
		base = arxivAPIBase
	}
	params := url.Values{
		"search_query": {c.query},
		"start":        {strconv.Itoa(c.start)},
		"max_results":  {strconv.Itoa(n)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.src.userAgent != "" {
		req.Header.Set("User-Agent", c.src.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.src.client, req, 0)
	if err != nil {
		return fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return fmt.Errorf("parsing arXiv response: %w", err)
	}

	for _, e := range feed.Entries {
		if strings.Contains(e.ID, "/api/errors") {
			return fmt.Errorf("arXiv API error: %s", collapse(e.Summary))
		}
		c.buf = append(c.buf, e.toRawResult())
	}

	c.start += len(feed.Entries)
	if feed.TotalResults > 0 && c.start >= feed.TotalResults {
		c.done = true
	}
	if len(feed.Entries) < n {
		c.done = true
	}
	return nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	TotalResults int          `xml:"totalResults"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

func (e arxivEntry) toRawResult() types.RawResult {
	r := types.RawResult{
		ID:       extractArxivID(e.ID),
		Title:    collapse(e.Title),
		Abstract: collapse(e.Summary),
		EntryURL: strings.TrimSpace(e.ID),
	}
	for _, a := range e.Authors {
		r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		r.Published = t
	}
	for _, l := range e.Links {
		switch {
		case l.Title == "pdf" || l.Type == "application/pdf":
			r.PDFURL = l.Href
		case l.Rel == "alternate":
			r.EntryURL = l.Href
		}
	}
	if r.PDFURL == "" && r.ID != "" {
		r.PDFURL = "https://arxiv.org/pdf/" + r.ID
	}
	for _, c := range e.Categories {
		if c.Term != "" {
			r.Categories = append(r.Categories, c.Term)
		}
	}
	return r
}

// extractArxivID pulls the versioned arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041v1",
// "http://arxiv.org/abs/hep-th/9901001v2" → "hep-th/9901001v2").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return strings.TrimSpace(idURL)
	}
	return strings.TrimSpace(idURL[idx+len(prefix):])
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
