// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"sort"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// DefaultCategory is the query used when a config carries neither a keyword
// nor a category. Validation rejects such configs, so this only guards
// callers that skip it.
const DefaultCategory = "cs.RO"

// DefaultCategories is the selection used by front-ends when the operator
// gives no categories and no keyword.
var DefaultCategories = []string{"cs.RO", "cs.AI", "eess.SY"}

// Compile turns cfg into an arXiv search_query expression:
//
//	(cat:A OR cat:B) AND (ti:"kw" OR abs:"kw")
//
// Either group may be absent. Categories are de-duplicated and sorted, so
// the same config always compiles to the same string.
func Compile(cfg types.SearchConfig) string {
	var groups []string

	if cats := normalizeCategories(cfg.Categories); len(cats) > 0 {
		terms := make([]string, len(cats))
		for i, c := range cats {
			terms[i] = "cat:" + c
		}
		groups = append(groups, "("+strings.Join(terms, " OR ")+")")
	}

	if kw := cfg.CleanKeyword(); kw != "" {
		groups = append(groups, `(ti:"`+kw+`" OR abs:"`+kw+`")`)
	}

	if len(groups) == 0 {
		return "cat:" + DefaultCategory
	}
	return strings.Join(groups, " AND ")
}

func normalizeCategories(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
