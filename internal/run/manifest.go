// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-fetcher/internal/artifact"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Manifest is run.yaml: what a run was asked to do and how it ended. The
// API key is never written.
type Manifest struct {
	RunID      string             `json:"run_id" yaml:"run_id"`
	Source     string             `json:"source" yaml:"source"`
	Query      string             `json:"query" yaml:"query"`
	Config     types.SearchConfig `json:"config" yaml:"config"`
	StartedAt  time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time          `json:"finished_at" yaml:"finished_at"`
	Outcome    Outcome            `json:"outcome" yaml:"outcome"`
	Counters   types.Counters     `json:"counters" yaml:"counters"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// WriteManifest saves m to path.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling run manifest: %w", err)
	}
	if err := artifact.WriteFile(path, data); err != nil {
		return fmt.Errorf("writing run manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing run manifest: %w", err)
	}
	return &m, nil
}
