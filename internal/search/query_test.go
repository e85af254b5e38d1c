package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.SearchConfig
		want string
	}{
		{
			name: "single category",
			cfg:  types.SearchConfig{Categories: []string{"cs.RO"}},
			want: "(cat:cs.RO)",
		},
		{
			name: "categories only",
			cfg:  types.SearchConfig{Categories: []string{"eess.SY", "cs.RO", "cs.AI"}},
			want: "(cat:cs.AI OR cat:cs.RO OR cat:eess.SY)",
		},
		{
			name: "keyword only",
			cfg:  types.SearchConfig{Keyword: "manipulation"},
			want: `(ti:"manipulation" OR abs:"manipulation")`,
		},
		{
			name: "both",
			cfg:  types.SearchConfig{Keyword: "robot learning", Categories: []string{"cs.RO", "cs.LG"}},
			want: `(cat:cs.LG OR cat:cs.RO) AND (ti:"robot learning" OR abs:"robot learning")`,
		},
		{
			name: "duplicate and blank categories",
			cfg:  types.SearchConfig{Categories: []string{" cs.RO", "", "cs.RO "}},
			want: "(cat:cs.RO)",
		},
		{
			name: "quotes stripped from keyword",
			cfg:  types.SearchConfig{Keyword: `say "hello"   world`},
			want: `(ti:"say hello world" OR abs:"say hello world")`,
		},
		{
			name: "neither falls back to default category",
			cfg:  types.SearchConfig{},
			want: "cat:cs.RO",
		},
		{
			name: "keyword of only quotes falls back",
			cfg:  types.SearchConfig{Keyword: `""`},
			want: "cat:cs.RO",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compile(tt.cfg))
		})
	}
}

func TestFallbackQueryNeverValidates(t *testing.T) {
	for _, kw := range []string{"", "   ", `""`, ` " " `} {
		cfg := types.SearchConfig{Keyword: kw, Categories: []string{" "}, MaxResults: 5}
		assert.Equal(t, "cat:"+DefaultCategory, Compile(cfg))
		assert.Error(t, cfg.Validate(), "keyword %q", kw)
	}
}

func TestCompileGroupShapes(t *testing.T) {
	catsOnly := Compile(types.SearchConfig{Categories: []string{"cs.RO", "q-bio.NC"}})
	assert.NotContains(t, catsOnly, "ti:")
	assert.NotContains(t, catsOnly, "abs:")
	assert.NotContains(t, catsOnly, " AND ")

	kwOnly := Compile(types.SearchConfig{Keyword: "slam"})
	assert.NotContains(t, kwOnly, "cat:")

	both := Compile(types.SearchConfig{Keyword: "slam", Categories: []string{"cs.RO"}})
	parts := strings.Split(both, " AND ")
	assert.Len(t, parts, 2)
	assert.Equal(t, "(cat:cs.RO)", parts[0])
	assert.Equal(t, kwOnly, parts[1])
}

func TestCompileDeterministic(t *testing.T) {
	cfg := types.SearchConfig{Keyword: "grasp", Categories: []string{"cs.RO", "cs.AI", "eess.SY"}}
	first := Compile(cfg)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Compile(cfg))
	}

	reordered := cfg
	reordered.Categories = []string{"eess.SY", "cs.AI", "cs.RO"}
	assert.Equal(t, first, Compile(reordered), "category order does not change the query")
}
