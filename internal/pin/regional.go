// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package pin

import (
	"context"
	"fmt"
	"sync"
)

// Entry is one service assigned to a region, with a Priority (lower is
// preferred). No method here orders entries by Priority: PinToRegion fans
// out to all of them in parallel, and VerifyPin checks them in slice order.
type Entry struct {
	Service  Service
	Priority int
}

// RegionalService composes several pinning services assigned to one
// region, per spec §4.9.
type RegionalService struct {
	Region  string
	Entries []Entry
}

// RegionResult is the outcome of PinToRegion.
type RegionResult struct {
	Success      bool
	CID          string
	SuccessCount int
	Errors       []error
}

// PinToRegion issues parallel pin requests to every service in the
// region and returns success once requiredSuccesses calls succeeded with
// a matching CID. The CID equality invariant (spec §4.9: "all successful
// pins in one region must return the same content identifier; otherwise
// the region result is failure") is enforced here: a successful pin
// whose CID disagrees with the first successful CID counts as a failure
// for quorum purposes, with its mismatch surfaced as an error.
func (rs *RegionalService) PinToRegion(ctx context.Context, blob []byte, requiredSuccesses int) (RegionResult, error) {
	type outcome struct {
		res Result
		err error
	}
	outcomes := make([]outcome, len(rs.Entries))

	var wg sync.WaitGroup
	for i, e := range rs.Entries {
		wg.Add(1)
		go func(i int, svc Service) {
			defer wg.Done()
			res, err := svc.Pin(ctx, blob, Options{})
			outcomes[i] = outcome{res: res, err: err}
		}(i, e.Service)
	}
	wg.Wait()

	var agreedCID string
	successCount := 0
	var errs []error
	for _, o := range outcomes {
		if o.err != nil || !o.res.Success {
			if o.err != nil {
				errs = append(errs, o.err)
			} else if o.res.Error != nil {
				errs = append(errs, o.res.Error)
			}
			continue
		}
		if agreedCID == "" {
			agreedCID = o.res.CID
			successCount++
			continue
		}
		if o.res.CID != agreedCID {
			errs = append(errs, fmt.Errorf("cid mismatch: expected %s, got %s", agreedCID, o.res.CID))
			continue
		}
		successCount++
	}

	if successCount >= requiredSuccesses && agreedCID != "" {
		return RegionResult{Success: true, CID: agreedCID, SuccessCount: successCount, Errors: errs}, nil
	}
	return RegionResult{Success: false, SuccessCount: successCount, Errors: errs}, nil
}

// UnpinRegion issues a best-effort unpin of cid to every service in the
// region, for rollback after a failed rollout phase (spec §4.12:
// "rollback best-effort errors are logged and do not propagate"). Errors
// are collected for the caller to log, not returned as a failure.
func (rs *RegionalService) UnpinRegion(ctx context.Context, cid string) []error {
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for _, e := range rs.Entries {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			if err := svc.Unpin(ctx, cid); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(e.Service)
	}
	wg.Wait()
	return errs
}

// VerifyPin returns success if any service in the region reports cid pinned.
func (rs *RegionalService) VerifyPin(ctx context.Context, cid string) (bool, error) {
	var errs []error
	for _, e := range rs.Entries {
		ok, err := e.Service.Verify(ctx, cid)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return true, nil
		}
	}
	if len(errs) == len(rs.Entries) && len(errs) > 0 {
		return false, fmt.Errorf("pin: all services failed verification: %v", errs)
	}
	return false, nil
}
