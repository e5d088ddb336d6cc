// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package orchestrator implements the Batch Orchestrator: a durable job
// queue over (state, layer) Cartesian task pairs, a bounded worker pool,
// per-task retry with exponential backoff, resumable job state, and
// validation report export, per spec §4.13.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// TaskStatus is a task's position in the PENDING→RUNNING→COMPLETED/FAILED
// state machine, per spec §4.13, plus the NOT_CONFIGURED short-circuit.
type TaskStatus string

const (
	TaskPending      TaskStatus = "PENDING"
	TaskRunning      TaskStatus = "RUNNING"
	TaskCompleted    TaskStatus = "COMPLETED"
	TaskFailed       TaskStatus = "FAILED"
	TaskNotConfigured TaskStatus = "NOT_CONFIGURED"
)

// JobStatus is the overall outcome of a job run.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobPartial   JobStatus = "partial"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// TaskRecord is one (state, layer) extraction task.
type TaskRecord struct {
	ID        string     `json:"id"`
	State     string     `json:"state"`
	Layer     string     `json:"layer"`
	Status    TaskStatus `json:"status"`
	Retries   int        `json:"retries"`
	Expected  *int       `json:"expected,omitempty"`
	Actual    *int       `json:"actual,omitempty"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func taskID(state, layer string) string { return state + "/" + layer }

// Options configures one orchestrated run.
type Options struct {
	Concurrency     int64
	PerTaskTimeout  time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	ContinueOnError bool
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.PerTaskTimeout <= 0 {
		o.PerTaskTimeout = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// Job is the durable record for one orchestrated run.
type Job struct {
	ID        string                 `json:"id"`
	States    []string               `json:"states"`
	Layers    []string               `json:"layers"`
	Options   Options                `json:"options"`
	Tasks     map[string]*TaskRecord `json:"tasks"`
	Status    JobStatus              `json:"status"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func newJob(id string, states, layers []string, opts Options) *Job {
	now := time.Now()
	tasks := make(map[string]*TaskRecord, len(states)*len(layers))
	for _, s := range states {
		for _, l := range layers {
			id := taskID(s, l)
			tasks[id] = &TaskRecord{ID: id, State: s, Layer: l, Status: TaskPending, UpdatedAt: now}
		}
	}
	return &Job{
		ID:        id,
		States:    states,
		Layers:    layers,
		Options:   opts,
		Tasks:     tasks,
		Status:    JobRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// sortedTaskIDs returns every task ID in deterministic ascending order,
// for serialized report output.
func (j *Job) sortedTaskIDs() []string {
	ids := make([]string, 0, len(j.Tasks))
	for id := range j.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// store persists and loads jobs under dir/jobs/<id>.json, atomically.
type store struct {
	dir string
}

func newStore(dir string) (*store, error) {
	jobsDir := filepath.Join(dir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o755); err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return &store{dir: jobsDir}, nil
}

func (s *store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *store) save(j *Job) error {
	j.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal job %s: %w", j.ID, err)
	}
	tmp, err := os.CreateTemp(s.dir, j.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("orchestrator: create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("orchestrator: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("orchestrator: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("orchestrator: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(j.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("orchestrator: rename: %w", err)
	}
	return nil
}

func (s *store) load(id string) (*Job, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("orchestrator: unmarshal job %s: %w", id, err)
	}
	return &j, nil
}

func (s *store) list() ([]*Job, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var jobs []*Job
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		j, err := s.load(id)
		if err != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.After(jobs[k].CreatedAt) })
	return jobs, nil
}
