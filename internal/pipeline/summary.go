// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/trialsift/pkg/types"
)

// WriteSummaryFile saves a run summary to a YAML file.
func WriteSummaryFile(path string, summary types.RunSummary) error {
	data, err := yaml.Marshal(&summary)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSummaryFile loads a previously saved run summary.
func ReadSummaryFile(path string) (*types.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary file: %w", err)
	}
	var s types.RunSummary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary file: %w", err)
	}
	return &s, nil
}
