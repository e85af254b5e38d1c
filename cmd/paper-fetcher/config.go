package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetcher/internal/search"
	"github.com/pdiddy/paper-fetcher/internal/secrets"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

const (
	defaultOutputDir = "arxiv_papers"
	defaultUserAgent = "paper-fetcher/0.1 (+https://github.com/pdiddy/paper-fetcher)"
)

// setDefaults registers every config key so that environment variables
// and the config file can override it.
func setDefaults(v *viper.Viper) {
	proc := types.DefaultProcessingOptions()

	v.SetDefault("search.keyword", "")
	v.SetDefault("search.categories", []string{})
	v.SetDefault("search.date_from", "")
	v.SetDefault("search.date_to", "")
	v.SetDefault("search.max_results", types.DefaultMaxResults)
	v.SetDefault("search.task", string(types.TaskSummarize))
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.processing.extract_text", proc.ExtractText)
	v.SetDefault("search.processing.check_encryption", proc.CheckEncryption)
	v.SetDefault("search.processing.create_text_artifacts", proc.CreateTextArtifacts)
	v.SetDefault("search.processing.summarize", proc.Summarize)

	v.SetDefault("download.timeout", 60*time.Second)
	v.SetDefault("download.user_agent", defaultUserAgent)

	v.SetDefault("arxiv.timeout", 30*time.Second)
	v.SetDefault("arxiv.user_agent", defaultUserAgent)
	v.SetDefault("arxiv.api_base", "")
	v.SetDefault("arxiv.page_size", 100)
	v.SetDefault("arxiv.page_delay", 3*time.Second)

	v.SetDefault("summarizer.base_url", "")
	v.SetDefault("summarizer.model", "gpt-3.5-turbo")
	v.SetDefault("summarizer.max_tokens", 300)
	v.SetDefault("summarizer.temperature", 0.3)
	v.SetDefault("summarizer.timeout", 60*time.Second)
	v.SetDefault("summarizer.excerpt_chars", 4000)

	v.SetDefault("output.dir", defaultOutputDir)
	v.SetDefault("output.sqlite_mirror", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// bindFlags binds the named flags of cmd to viper keys. Commands bind at
// run time so that flags shared by name across commands do not collide.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			return fmt.Errorf("flag --%s is not defined on %s", name, cmd.Name())
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// searchFlagKeys are the flags shared by fetch and query.
var searchFlagKeys = map[string]string{
	"keyword":    "search.keyword",
	"categories": "search.categories",
	"from":       "search.date_from",
	"to":         "search.date_to",
	"max":        "search.max_results",
}

func addSearchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("keyword", "k", "", "search term matched against titles and abstracts")
	f.StringSliceP("categories", "c", nil, "arXiv category codes, comma-separated (default cs.RO,cs.AI,eess.SY when no keyword)")
	f.String("from", "", "earliest publication date, inclusive (YYYY-MM-DD)")
	f.String("to", "", "latest publication date, inclusive (YYYY-MM-DD)")
	f.IntP("max", "n", 0, fmt.Sprintf("maximum results to request, 1-%d (default %d)", types.MaxResultsUpperBound, types.DefaultMaxResults))
}

// decodeConfig reads v into an AppConfig and fills the values that depend
// on other settings: default categories and the API key.
func decodeConfig(v *viper.Viper, s secrets.Secrets) (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	cfg.Search.Categories = splitCategories(cfg.Search.Categories)
	if len(cfg.Search.Categories) == 0 && strings.TrimSpace(cfg.Search.Keyword) == "" {
		cfg.Search.Categories = append([]string(nil), search.DefaultCategories...)
	}

	apiKey := cfg.Search.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.Search.APIKey = s.Resolve(secrets.OpenAIAPIKey, apiKey)
	return cfg, nil
}

// splitCategories accepts both list values and comma-separated strings,
// which is how environment variables arrive.
func splitCategories(in []string) []string {
	var out []string
	for _, item := range in {
		for _, c := range strings.Split(item, ",") {
			if c = strings.TrimSpace(c); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}
