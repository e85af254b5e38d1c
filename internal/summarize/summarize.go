// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize sends a bounded excerpt of a paper's text to a chat
// model with a task-specific instruction and classifies failures.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

const (
	DefaultExcerptChars = 4000
	DefaultModel        = "gpt-3.5-turbo"
	DefaultMaxTokens    = 300
	DefaultTemperature  = 0.3
	DefaultTimeout      = 60 * time.Second
)

// Backend abstracts the chat completion API so tests can supply a mock.
type Backend interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, system, prompt string) (string, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

var errEmptyResponse = errors.New("empty response from model")

// Summarizer runs one task per call against a Backend.
type Summarizer struct {
	backend      Backend
	model        string
	excerptChars int
	timeout      time.Duration
}

// New builds a Summarizer. Zero config fields take the defaults above.
func New(b Backend, cfg types.SummarizerConfig) *Summarizer {
	cfg = WithDefaults(cfg)
	return &Summarizer{
		backend:      b,
		model:        cfg.Model,
		excerptChars: cfg.ExcerptChars,
		timeout:      cfg.Timeout,
	}
}

// WithDefaults fills the zero fields of cfg.
func WithDefaults(cfg types.SummarizerConfig) types.SummarizerConfig {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = DefaultExcerptChars
	}
	return cfg
}

// Model names the model the summarizer was configured with.
func (s *Summarizer) Model() string { return s.model }

// Summarize runs task over the first characters of text. Every failure is
// returned as an *Error.
func (s *Summarizer) Summarize(ctx context.Context, task types.SummaryTask, title, text string) (string, error) {
	if task == "" {
		task = types.TaskSummarize
	}
	prompt, err := RenderPrompt(task, title, Excerpt(text, s.excerptChars))
	if err != nil {
		return "", &Error{Class: ClassOther, Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.backend.Generate(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", Classify(err)
	}
	if strings.TrimSpace(out) == "" {
		return "", &Error{Class: ClassOther, Err: errEmptyResponse}
	}
	return out, nil
}
