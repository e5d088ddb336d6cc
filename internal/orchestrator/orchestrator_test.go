// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type taskScript struct {
	failuresBeforeSuccess int
	alwaysFail            bool
	result                ExtractionResult
	sleep                 time.Duration
}

type fakeExtractor struct {
	mu      sync.Mutex
	scripts map[string]*taskScript
	calls   map[string]int
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{scripts: map[string]*taskScript{}, calls: map[string]int{}}
}

func (f *fakeExtractor) script(state, layer string, s *taskScript) {
	f.scripts[taskID(state, layer)] = s
}

func (f *fakeExtractor) Extract(ctx context.Context, state, layer string) (ExtractionResult, error) {
	id := taskID(state, layer)
	f.mu.Lock()
	f.calls[id]++
	calls := f.calls[id]
	s := f.scripts[id]
	f.mu.Unlock()

	if s == nil {
		return ExtractionResult{Expected: 1, Actual: 1}, nil
	}
	if s.sleep > 0 {
		select {
		case <-ctx.Done():
			return ExtractionResult{}, ctx.Err()
		case <-time.After(s.sleep):
		}
	}
	if s.alwaysFail || calls <= s.failuresBeforeSuccess {
		return ExtractionResult{}, errors.New("extraction failed")
	}
	return s.result, nil
}

type fakeRegistry struct {
	unconfigured map[string]bool
}

func (f *fakeRegistry) Configured(state, layer string) bool {
	return !f.unconfigured[taskID(state, layer)]
}

func newOrchestrator(t *testing.T, extractor Extractor, registry RegistryChecker, progress ProgressCallback) *Orchestrator {
	t.Helper()
	o, err := New(t.TempDir(), extractor, registry, progress)
	require.NoError(t, err)
	return o
}

func TestOrchestrateStates_AllSucceed(t *testing.T) {
	o := newOrchestrator(t, newFakeExtractor(), &fakeRegistry{}, nil)
	res, err := o.OrchestrateStates(context.Background(), []string{"WI", "MI"}, []string{"congressional"}, Options{Concurrency: 2})
	require.NoError(t, err)
	require.Equal(t, JobCompleted, res.Status)
	require.Equal(t, 2, res.TotalTasks)
	require.Equal(t, 2, res.Completed)
	require.Equal(t, 0, res.Failed)
}

func TestOrchestrateStates_RegistryMissShortCircuitsWithoutCallingExtractor(t *testing.T) {
	ext := newFakeExtractor()
	registry := &fakeRegistry{unconfigured: map[string]bool{taskID("WI", "ward"): true}}
	o := newOrchestrator(t, ext, registry, nil)

	res, err := o.OrchestrateStates(context.Background(), []string{"WI"}, []string{"ward"}, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.NotConfigured)
	require.Equal(t, 0, res.Completed)
	require.Equal(t, 0, ext.calls[taskID("WI", "ward")])
}

func TestOrchestrateStates_RetriesThenSucceeds(t *testing.T) {
	ext := newFakeExtractor()
	ext.script("WI", "congressional", &taskScript{failuresBeforeSuccess: 2, result: ExtractionResult{Expected: 8, Actual: 8}})
	o := newOrchestrator(t, ext, &fakeRegistry{}, nil)

	res, err := o.OrchestrateStates(context.Background(), []string{"WI"}, []string{"congressional"}, Options{MaxRetries: 5, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, JobCompleted, res.Status)
	require.Equal(t, 3, ext.calls[taskID("WI", "congressional")])
}

func TestOrchestrateStates_ExhaustsRetriesAndContinuesOnError(t *testing.T) {
	ext := newFakeExtractor()
	ext.script("WI", "congressional", &taskScript{alwaysFail: true})
	o := newOrchestrator(t, ext, &fakeRegistry{}, nil)

	res, err := o.OrchestrateStates(context.Background(), []string{"WI", "MI"}, []string{"congressional"}, Options{
		MaxRetries: 2, RetryDelay: time.Millisecond, ContinueOnError: true,
	})
	require.NoError(t, err)
	require.Equal(t, JobPartial, res.Status)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, 1, res.Completed)
	require.Equal(t, 2, ext.calls[taskID("WI", "congressional")], "maxRetries=2 caps total attempts at 2")
}

func TestOrchestrateStates_AbortsOnFirstFailureWhenContinueOnErrorFalse(t *testing.T) {
	ext := newFakeExtractor()
	ext.script("WI", "congressional", &taskScript{alwaysFail: true})
	ext.script("MI", "congressional", &taskScript{sleep: 50 * time.Millisecond, result: ExtractionResult{Expected: 1, Actual: 1}})
	o := newOrchestrator(t, ext, &fakeRegistry{}, nil)

	res, err := o.OrchestrateStates(context.Background(), []string{"WI", "MI"}, []string{"congressional"}, Options{
		Concurrency: 2, MaxRetries: 1, RetryDelay: time.Millisecond, ContinueOnError: false,
	})
	require.NoError(t, err)
	require.Equal(t, JobFailed, res.Status)
}

func TestResumeJob_RerunsFailedAndSkipsCompleted(t *testing.T) {
	ext := newFakeExtractor()
	ext.script("MI", "congressional", &taskScript{alwaysFail: true})
	o := newOrchestrator(t, ext, &fakeRegistry{}, nil)

	res, err := o.OrchestrateStates(context.Background(), []string{"WI", "MI"}, []string{"congressional"}, Options{
		MaxRetries: 1, RetryDelay: time.Millisecond, ContinueOnError: true,
	})
	require.NoError(t, err)
	require.Equal(t, JobPartial, res.Status)
	require.Equal(t, 1, ext.calls[taskID("WI", "congressional")])

	ext.scripts[taskID("MI", "congressional")].alwaysFail = false
	ext.scripts[taskID("MI", "congressional")].result = ExtractionResult{Expected: 1, Actual: 1}

	res2, err := o.ResumeJob(context.Background(), res.JobID)
	require.NoError(t, err)
	require.Equal(t, JobCompleted, res2.Status)
	require.Equal(t, 1, ext.calls[taskID("WI", "congressional")], "completed task from the prior run must not re-execute")
}

func TestProgressCallback_FiresStartedAndCompleted(t *testing.T) {
	var mu sync.Mutex
	var events []ProgressEvent
	cb := func(e ProgressEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}
	o := newOrchestrator(t, newFakeExtractor(), &fakeRegistry{}, cb)

	_, err := o.OrchestrateStates(context.Background(), []string{"WI"}, []string{"congressional"}, Options{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	require.Equal(t, "started", events[0].Status)
	require.Equal(t, "completed", events[1].Status)
}

func TestGetJobStatusAndListJobs(t *testing.T) {
	o := newOrchestrator(t, newFakeExtractor(), &fakeRegistry{}, nil)
	res, err := o.OrchestrateStates(context.Background(), []string{"WI"}, []string{"congressional"}, Options{})
	require.NoError(t, err)

	job, ok := o.GetJobStatus(res.JobID)
	require.True(t, ok)
	require.Equal(t, JobCompleted, job.Status)

	jobs, err := o.ListJobs(10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestExportValidationReport(t *testing.T) {
	ext := newFakeExtractor()
	ext.script("WI", "congressional", &taskScript{result: ExtractionResult{Expected: 8, Actual: 7}})
	registry := &fakeRegistry{unconfigured: map[string]bool{taskID("MI", "congressional"): true}}
	o := newOrchestrator(t, ext, registry, nil)

	res, err := o.OrchestrateStates(context.Background(), []string{"WI", "MI"}, []string{"congressional"}, Options{})
	require.NoError(t, err)

	path := t.TempDir() + "/report.json"
	require.NoError(t, o.ExportValidationReport(res.JobID, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report ValidationReport
	require.NoError(t, json.Unmarshal(data, &report))
	require.Equal(t, 2, report.TotalStates)
	require.Equal(t, 1, report.Summary.Mismatched)
	require.Equal(t, 1, report.Summary.NotConfigured)
}

func TestOrchestrateStates_BoundedConcurrency(t *testing.T) {
	ext := newFakeExtractor()
	states := []string{"AA", "BB", "CC", "DD", "EE"}
	for _, s := range states {
		ext.script(s, "ward", &taskScript{sleep: 10 * time.Millisecond, result: ExtractionResult{Expected: 1, Actual: 1}})
	}
	o := newOrchestrator(t, ext, &fakeRegistry{}, nil)

	start := time.Now()
	res, err := o.OrchestrateStates(context.Background(), states, []string{"ward"}, Options{Concurrency: 2})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Equal(t, JobCompleted, res.Status)
	require.GreaterOrEqual(t, elapsed, 30*time.Millisecond, "5 tasks at concurrency 2 cannot finish in under 3 batches of 10ms")
}
