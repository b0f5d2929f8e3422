// Package report assembles scenario results and console diagnostics into the
// single persisted run artifact.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// OverlayState is a point-in-time projection of the lockout overlay element.
type OverlayState struct {
	Hidden    bool   `json:"hidden"`
	Active    bool   `json:"active"`
	ClassName string `json:"className"`
}

// BodyState is a point-in-time projection of the document body's
// lockout-related state.
type BodyState struct {
	Lockout bool   `json:"lockout"`
	Classes string `json:"classes"`
}

// ScenarioResult holds the sampled states for one scenario run.
// BodyEarly is nil when the early sample timed out; absence at the early
// checkpoint is informative, not erroneous.
type ScenarioResult struct {
	Scenario  string       `json:"scenario"`
	Overlay   OverlayState `json:"overlay"`
	Body      BodyState    `json:"body"`
	BodyEarly *BodyState   `json:"bodyEarly,omitempty"`
}

// ConsoleEvent is one console message observed during the browser session,
// ordered by emission time.
type ConsoleEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RunReport is the persisted artifact: ordered scenario results plus the full
// console log. Created once, written once, never mutated after write.
type RunReport struct {
	Results []ScenarioResult `json:"results"`
	Console []ConsoleEvent   `json:"console"`
}

// Aggregate composes results and console events into a RunReport. Pure and
// order-preserving; it trusts upstream contracts and performs no validation.
func Aggregate(results []ScenarioResult, console []ConsoleEvent) RunReport {
	if results == nil {
		results = []ScenarioResult{}
	}
	if console == nil {
		console = []ConsoleEvent{}
	}
	return RunReport{Results: results, Console: console}
}

// Write serializes the report as indented JSON at path, replacing any prior
// artifact atomically: the bytes land in a temp file in the same directory
// and a rename swaps it in, so a reader never observes records from two runs.
func Write(rep RunReport, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}
