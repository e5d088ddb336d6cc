// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"

	"github.com/google/uuid"
)

// ExtractionResult is what an Extractor reports for one (state, layer)
// task: the registry's expected feature count against what the
// extractor actually found.
type ExtractionResult struct {
	Expected int
	Actual   int
}

// Extractor runs the actual boundary-layer extraction for one task.
type Extractor interface {
	Extract(ctx context.Context, state, layer string) (ExtractionResult, error)
}

// RegistryChecker reports whether a (state, layer) pair has a registry
// entry at all; a miss short-circuits the task to NOT_CONFIGURED without
// ever invoking the Extractor, per spec §4.13.
type RegistryChecker interface {
	Configured(state, layer string) bool
}

// ProgressEvent is reported at every task-state transition.
type ProgressEvent struct {
	TaskID string
	State  string
	Layer  string
	Status string // "started" | "completed" | "failed"
	Err    error
}

// ProgressCallback receives every ProgressEvent. May be nil.
type ProgressCallback func(ProgressEvent)

// JobResult summarizes a completed or in-progress job run.
type JobResult struct {
	JobID         string
	Status        JobStatus
	TotalTasks    int
	Completed     int
	Failed        int
	NotConfigured int
	Tasks         []TaskRecord
}

// Orchestrator runs and persists jobs of (state, layer) extraction tasks.
type Orchestrator struct {
	store     *store
	extractor Extractor
	registry  RegistryChecker
	progress  ProgressCallback
}

// New builds an Orchestrator persisting job records under dir.
func New(dir string, extractor Extractor, registry RegistryChecker, progress ProgressCallback) (*Orchestrator, error) {
	st, err := newStore(dir)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{store: st, extractor: extractor, registry: registry, progress: progress}, nil
}

// OrchestrateStates creates a new job over the Cartesian product of
// states × layers and runs it to completion, per spec §4.13.
func (o *Orchestrator) OrchestrateStates(ctx context.Context, states, layers []string, opts Options) (JobResult, error) {
	job := newJob(uuid.NewString(), states, layers, opts.withDefaults())
	if err := o.store.save(job); err != nil {
		return JobResult{}, err
	}
	return o.runJob(ctx, job)
}

// ResumeJob reloads a job's persisted state and re-runs every task that is
// neither COMPLETED nor NOT_CONFIGURED, per spec §4.13.
func (o *Orchestrator) ResumeJob(ctx context.Context, jobID string) (JobResult, error) {
	job, err := o.store.load(jobID)
	if err != nil {
		return JobResult{}, err
	}
	for _, t := range job.Tasks {
		if t.Status == TaskFailed || t.Status == TaskPending {
			t.Status = TaskPending
			t.Error = ""
		}
	}
	job.Status = JobRunning
	if err := o.store.save(job); err != nil {
		return JobResult{}, err
	}
	return o.runJob(ctx, job)
}

// GetJobStatus returns the current persisted state of a job.
func (o *Orchestrator) GetJobStatus(jobID string) (*Job, bool) {
	job, err := o.store.load(jobID)
	if err != nil {
		return nil, false
	}
	return job, true
}

// ListJobs returns up to limit jobs, most recently created first.
func (o *Orchestrator) ListJobs(limit int) ([]*Job, error) {
	jobs, err := o.store.list()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}
