// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

func (o *Orchestrator) runJob(ctx context.Context, job *Job) (JobResult, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(job.Options.Concurrency)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var aborted atomic.Bool

	for _, id := range job.sortedTaskIDs() {
		mu.Lock()
		task := job.Tasks[id]
		skip := task.Status == TaskCompleted || task.Status == TaskNotConfigured
		mu.Unlock()
		if skip {
			continue
		}
		if aborted.Load() {
			break
		}
		if err := sem.Acquire(jobCtx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(task *TaskRecord) {
			defer wg.Done()
			defer sem.Release(1)
			o.runTask(jobCtx, cancel, job, task, &mu, &aborted)
		}(task)
	}
	wg.Wait()

	return o.finalize(ctx, job, aborted.Load())
}

func (o *Orchestrator) runTask(ctx context.Context, cancel context.CancelFunc, job *Job, task *TaskRecord, mu *sync.Mutex, aborted *atomic.Bool) {
	if !o.registry.Configured(task.State, task.Layer) {
		mu.Lock()
		task.Status = TaskNotConfigured
		task.UpdatedAt = time.Now()
		_ = o.store.save(job)
		mu.Unlock()
		return
	}

	mu.Lock()
	task.Status = TaskRunning
	task.UpdatedAt = time.Now()
	_ = o.store.save(job)
	mu.Unlock()
	o.report(ProgressEvent{TaskID: task.ID, State: task.State, Layer: task.Layer, Status: "started"})

	for {
		taskCtx, taskCancel := context.WithTimeout(ctx, job.Options.PerTaskTimeout)
		result, err := o.extractor.Extract(taskCtx, task.State, task.Layer)
		taskCancel()

		if err == nil {
			mu.Lock()
			task.Status = TaskCompleted
			expected, actual := result.Expected, result.Actual
			task.Expected = &expected
			task.Actual = &actual
			task.Error = ""
			task.UpdatedAt = time.Now()
			_ = o.store.save(job)
			mu.Unlock()
			o.report(ProgressEvent{TaskID: task.ID, State: task.State, Layer: task.Layer, Status: "completed"})
			return
		}

		if ctx.Err() != nil {
			mu.Lock()
			task.Status = TaskFailed
			task.Error = ctx.Err().Error()
			task.UpdatedAt = time.Now()
			_ = o.store.save(job)
			mu.Unlock()
			o.report(ProgressEvent{TaskID: task.ID, State: task.State, Layer: task.Layer, Status: "failed", Err: ctx.Err()})
			return
		}

		delay := job.Options.RetryDelay * time.Duration(uint64(1)<<uint(task.Retries))
		task.Retries++

		if task.Retries < job.Options.MaxRetries {
			mu.Lock()
			task.UpdatedAt = time.Now()
			_ = o.store.save(job)
			mu.Unlock()
			select {
			case <-ctx.Done():
				mu.Lock()
				task.Status = TaskFailed
				task.Error = ctx.Err().Error()
				task.UpdatedAt = time.Now()
				_ = o.store.save(job)
				mu.Unlock()
				o.report(ProgressEvent{TaskID: task.ID, State: task.State, Layer: task.Layer, Status: "failed", Err: ctx.Err()})
				return
			case <-time.After(delay):
			}
			continue
		}

		mu.Lock()
		task.Status = TaskFailed
		task.Error = err.Error()
		task.UpdatedAt = time.Now()
		_ = o.store.save(job)
		mu.Unlock()
		o.report(ProgressEvent{TaskID: task.ID, State: task.State, Layer: task.Layer, Status: "failed", Err: err})

		if !job.Options.ContinueOnError {
			aborted.Store(true)
			cancel()
		}
		return
	}
}

func (o *Orchestrator) report(e ProgressEvent) {
	if o.progress != nil {
		o.progress(e)
	}
}

func (o *Orchestrator) finalize(ctx context.Context, job *Job, aborted bool) (JobResult, error) {
	completed, failed, notConfigured := 0, 0, 0
	var tasks []TaskRecord
	for _, id := range job.sortedTaskIDs() {
		t := job.Tasks[id]
		switch t.Status {
		case TaskCompleted:
			completed++
		case TaskFailed:
			failed++
		case TaskNotConfigured:
			notConfigured++
		}
		tasks = append(tasks, *t)
	}

	switch {
	case ctx.Err() != nil:
		job.Status = JobCancelled
	case aborted:
		job.Status = JobFailed
	case failed > 0:
		job.Status = JobPartial
	default:
		job.Status = JobCompleted
	}
	if err := o.store.save(job); err != nil {
		return JobResult{}, err
	}

	return JobResult{
		JobID:         job.ID,
		Status:        job.Status,
		TotalTasks:    len(job.Tasks),
		Completed:     completed,
		Failed:        failed,
		NotConfigured: notConfigured,
		Tasks:         tasks,
	}, nil
}
