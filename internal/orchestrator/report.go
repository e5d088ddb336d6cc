// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReportResult is one row of a validation report, per spec §6's
// {state, layer, expected, actual, status, error?} shape.
type ReportResult struct {
	State    string `json:"state"`
	Layer    string `json:"layer"`
	Expected *int   `json:"expected,omitempty"`
	Actual   *int   `json:"actual,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// ReportSummary tallies ReportResult.Status across the job.
type ReportSummary struct {
	Matched       int `json:"matched"`
	Mismatched    int `json:"mismatched"`
	Errors        int `json:"errors"`
	NotConfigured int `json:"notConfigured"`
}

// ValidationReport is the document export_validation_report writes.
type ValidationReport struct {
	Timestamp  time.Time      `json:"timestamp"`
	TotalStates int           `json:"totalStates"`
	Results    []ReportResult `json:"results"`
	Summary    ReportSummary  `json:"summary"`
}

// ExportValidationReport writes job jobID's validation report to path,
// per spec §4.13/§6.
func (o *Orchestrator) ExportValidationReport(jobID, path string) error {
	job, err := o.store.load(jobID)
	if err != nil {
		return fmt.Errorf("orchestrator: load job %s: %w", jobID, err)
	}

	report := ValidationReport{
		Timestamp:   time.Now(),
		TotalStates: len(job.States),
	}

	for _, id := range job.sortedTaskIDs() {
		t := job.Tasks[id]
		row := ReportResult{State: t.State, Layer: t.Layer, Expected: t.Expected, Actual: t.Actual}

		switch t.Status {
		case TaskNotConfigured:
			row.Status = "not_configured"
			report.Summary.NotConfigured++
		case TaskFailed:
			row.Status = "error"
			row.Error = t.Error
			report.Summary.Errors++
		case TaskCompleted:
			if t.Expected != nil && t.Actual != nil && *t.Expected == *t.Actual {
				row.Status = "matched"
				report.Summary.Matched++
			} else {
				row.Status = "mismatched"
				report.Summary.Mismatched++
			}
		default:
			row.Status = "pending"
		}
		report.Results = append(report.Results, row)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "report-*.tmp")
	if err != nil {
		return fmt.Errorf("orchestrator: create temp report: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("orchestrator: write temp report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("orchestrator: sync temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("orchestrator: close temp report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("orchestrator: rename report: %w", err)
	}
	return nil
}
