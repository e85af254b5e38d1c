package types

import "time"

// SummaryTask selects the instruction sent to the summarization service.
type SummaryTask string

const (
	TaskSummarize       SummaryTask = "summarize"
	TaskExtractKeywords SummaryTask = "extract_keywords"
	TaskFindMethodology SummaryTask = "find_methodology"
	TaskIdentifyGaps    SummaryTask = "identify_gaps"
)

const (
	// DefaultMaxResults is used when no max result count is configured.
	DefaultMaxResults = 50

	// MaxResultsUpperBound is the largest accepted max result count.
	MaxResultsUpperBound = 500
)

// SummaryTasks lists the accepted SummaryTask values in display order.
var SummaryTasks = []SummaryTask{
	TaskSummarize,
	TaskExtractKeywords,
	TaskFindMethodology,
	TaskIdentifyGaps,
}

// ProcessingOptions toggles the optional per-paper stages.
type ProcessingOptions struct {
	// ExtractText enables per-page text extraction.
	ExtractText bool `json:"extract_text" yaml:"extract_text" mapstructure:"extract_text"`

	// CheckEncryption reports encrypted PDFs as warnings and in the summary template.
	CheckEncryption bool `json:"check_encryption" yaml:"check_encryption" mapstructure:"check_encryption"`

	// CreateTextArtifacts writes extracted text to extracted_text/.
	CreateTextArtifacts bool `json:"create_text_artifacts" yaml:"create_text_artifacts" mapstructure:"create_text_artifacts"`

	// Summarize sends extracted text to the summarization service.
	Summarize bool `json:"summarize" yaml:"summarize" mapstructure:"summarize"`
}

// DefaultProcessingOptions mirrors the defaults of the interactive front-ends:
// everything on except summarization.
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		ExtractText:         true,
		CheckEncryption:     true,
		CreateTextArtifacts: true,
	}
}

// SearchConfig is the immutable input to one run. Validate must pass before
// the pipeline touches the network.
type SearchConfig struct {
	// Keyword is matched against titles and abstracts.
	Keyword string `json:"keyword,omitempty" yaml:"keyword,omitempty" mapstructure:"keyword" validate:"max=200"`

	// Categories holds arXiv category codes such as "cs.RO".
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty" mapstructure:"categories" validate:"dive,arxivcat"`

	// DateFrom is the inclusive lower bound in YYYY-MM-DD format.
	DateFrom string `json:"date_from,omitempty" yaml:"date_from,omitempty" mapstructure:"date_from" validate:"omitempty,datetime=2006-01-02"`

	// DateTo is the inclusive upper bound in YYYY-MM-DD format.
	DateTo string `json:"date_to,omitempty" yaml:"date_to,omitempty" mapstructure:"date_to" validate:"omitempty,datetime=2006-01-02"`

	// MaxResults bounds the number of results requested from the search API.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results" validate:"gte=1,lte=500"`

	Processing ProcessingOptions `json:"processing" yaml:"processing" mapstructure:"processing"`

	// Task is the summarization instruction; empty means TaskSummarize.
	Task SummaryTask `json:"task,omitempty" yaml:"task,omitempty" mapstructure:"task" validate:"omitempty,oneof=summarize extract_keywords find_methodology identify_gaps"`

	// APIKey is the summarization service credential. Never serialized.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`
}

// EffectiveTask returns Task, defaulting to TaskSummarize.
func (c SearchConfig) EffectiveTask() SummaryTask {
	if c.Task == "" {
		return TaskSummarize
	}
	return c.Task
}

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ArxivConfig holds settings for the arXiv search source.
type ArxivConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIBase is the Atom query endpoint.
	APIBase string `json:"api_base" yaml:"api_base" mapstructure:"api_base"`

	// PageSize is the number of entries requested per page (1-200).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// PageDelay is the minimum spacing between page requests.
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay" mapstructure:"page_delay"`
}

// SummarizerConfig holds settings for the summarization service.
type SummarizerConfig struct {
	// BaseURL is an OpenAI-compatible endpoint; empty uses the provider default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Model is the chat model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// MaxTokens caps the generated response.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Temperature is the sampling temperature.
	Temperature float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// Timeout bounds one summarization call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// ExcerptChars is the character budget of text sent per paper.
	ExcerptChars int `json:"excerpt_chars" yaml:"excerpt_chars" mapstructure:"excerpt_chars"`
}

// OutputConfig controls where a run writes its artifacts.
type OutputConfig struct {
	// Dir is the output root (contains pdfs/, summaries/, metadata.csv).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// SQLiteMirror additionally records ledger rows in ledger.db.
	SQLiteMirror bool `json:"sqlite_mirror" yaml:"sqlite_mirror" mapstructure:"sqlite_mirror"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// AppConfig groups every setting the CLI reads from flags, environment and
// the config file.
type AppConfig struct {
	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	Download   HTTPConfig       `json:"download" yaml:"download" mapstructure:"download"`
	Arxiv      ArxivConfig      `json:"arxiv" yaml:"arxiv" mapstructure:"arxiv"`
	Summarizer SummarizerConfig `json:"summarizer" yaml:"summarizer" mapstructure:"summarizer"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
}
