// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search compiles a SearchConfig into an arXiv query and turns the
// API's paged results into a lazy, filtered stream of RawResult.
package search

import (
	"context"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Source is a bibliographic search API. Each Open issues a fresh request
// sequence; cursors are not resumable.
type Source interface {
	Name() string

	// Open prepares a cursor over at most max results for query, ordered by
	// submission date, newest first. No request is made until the first Next.
	Open(query string, max int) Cursor
}

// Cursor is a forward-only sequence of results. Next returns io.EOF once
// the sequence is exhausted.
type Cursor interface {
	Next(ctx context.Context) (types.RawResult, error)
}
