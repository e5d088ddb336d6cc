// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package validate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// BatchResult pairs a candidate with its validation result, preserving
// input order regardless of completion order.
type BatchResult struct {
	Candidate Candidate
	Result    Result
	Err       error
}

// ValidateBatch applies the pipeline across candidates with a bounded
// concurrency n, per spec §4.6's "batch API...with a bounded concurrency
// N" requirement.
func (v *Validator) ValidateBatch(ctx context.Context, candidates []Candidate, tier Tier, n int64) ([]BatchResult, error) {
	if n <= 0 {
		n = 1
	}
	out := make([]BatchResult, len(candidates))
	sem := semaphore.NewWeighted(n)

	type job struct {
		idx int
		c   Candidate
	}
	done := make(chan job, len(candidates))

	for i, c := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: fill remaining entries with the cancellation error.
			for j := i; j < len(candidates); j++ {
				out[j] = BatchResult{Candidate: candidates[j], Err: ctx.Err()}
			}
			return out, ctx.Err()
		}
		go func(i int, c Candidate) {
			defer sem.Release(1)
			res, err := v.validateTier(ctx, c, tier)
			out[i] = BatchResult{Candidate: c, Result: res, Err: err}
			done <- job{idx: i, c: c}
		}(i, c)
	}

	for range candidates {
		<-done
	}
	return out, nil
}
