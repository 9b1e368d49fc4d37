package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const reportFileName = "report.json"

// Save writes the report as JSON under stateDir, atomically: a torn write
// must never leave a half-formed report for the next editor session to load.
func Save(r *Report, stateDir string) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	path := filepath.Join(stateDir, reportFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace report: %w", err)
	}
	return nil
}

// Load reads a previously saved report. A missing file returns (nil, nil).
func Load(stateDir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, reportFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	r := New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	if r.Tests == nil {
		r.Tests = make(map[string][]TestResult)
	}
	return r, nil
}
