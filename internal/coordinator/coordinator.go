// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package coordinator implements the Update Coordinator: phased rollout
// execution over the Pinning-Service Abstraction's Regional Service,
// CID-equality enforcement across phases, rollback-on-failure unpin
// fan-out, and replication verification, per spec §4.12.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boundarynet/core/internal/logging"
	"github.com/boundarynet/core/internal/pin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Phase is one step of a rollout, per spec §4.12's phase tuple.
type Phase struct {
	PhaseNumber       int
	Regions           []string
	DelayBefore       time.Duration
	VerifyReplication bool
	MaxFailures       int
}

// replicationQuorum is the ≥80% regional confirmation spec §4.12 requires
// when VerifyReplication is set.
const replicationQuorum = 0.80

// Rollout is an ordered list of phases. RollbackOnFailure is rollout-wide
// (spec §4.12 lists it outside the per-phase tuple).
type Rollout struct {
	Phases            []Phase
	RollbackOnFailure bool
}

// RegionalPinner is the narrow capability the Coordinator needs from a
// region's Regional Service — a map from region name to this interface,
// per spec §4's cyclic-reference guidance, rather than a direct
// dependency on *pin.RegionalService.
type RegionalPinner interface {
	PinToRegion(ctx context.Context, blob []byte, requiredSuccesses int) (pin.RegionResult, error)
	VerifyPin(ctx context.Context, cid string) (bool, error)
	UnpinRegion(ctx context.Context, cid string) []error
}

// PhaseResult records one phase's outcome.
type PhaseResult struct {
	PhaseNumber         int
	RegionResults       map[string]pin.RegionResult
	Failures            int
	ReplicationVerified bool
	Err                 error
}

// PublishResult is the Coordinator's global rollout outcome.
type PublishResult struct {
	CID                 string
	PerRegionStatus     map[string]bool
	TotalReplicas       int
	Duration            time.Duration
	PhaseResults        []PhaseResult
	VerificationSummary map[string]float64 // region -> confirmation ratio, only for verified phases
}

// Coordinator executes rollouts across a fixed set of regions.
type Coordinator struct {
	regions map[string]RegionalPinner
	log     logging.Logger
}

// New builds a Coordinator over a region -> Regional Service map.
func New(regions map[string]RegionalPinner, log logging.Logger) *Coordinator {
	return &Coordinator{regions: regions, log: logging.OrDefault(log)}
}

// Publish executes rollout, uploading blob to every region via its
// Regional Service phase by phase, per spec §4.12.
func (c *Coordinator) Publish(ctx context.Context, rollout Rollout, blob []byte, requiredSuccessesPerRegion int) (PublishResult, error) {
	start := time.Now()

	var agreedCID string
	perRegionStatus := map[string]bool{}
	verificationSummary := map[string]float64{}
	var successfulRegions []string
	var phaseResults []PhaseResult

	for _, phase := range rollout.Phases {
		if phase.DelayBefore > 0 {
			select {
			case <-ctx.Done():
				return PublishResult{}, ctx.Err()
			case <-time.After(phase.DelayBefore):
			}
		}

		results := c.pinPhase(ctx, phase, blob, requiredSuccessesPerRegion)

		failures := 0
		for region, res := range results {
			if !res.Success {
				failures++
				continue
			}
			if agreedCID == "" {
				agreedCID = res.CID
			} else if res.CID != agreedCID {
				c.log.Warn("region CID disagreement", zap.String("region", region), zap.String("expected", agreedCID), zap.String("got", res.CID))
				failures++
				continue
			}
			perRegionStatus[region] = true
			successfulRegions = append(successfulRegions, region)
		}

		phaseResult := PhaseResult{PhaseNumber: phase.PhaseNumber, RegionResults: results, Failures: failures}

		if failures > phase.MaxFailures {
			phaseResult.Err = fmt.Errorf("coordinator: phase %d: %d failures exceeds max_failures %d", phase.PhaseNumber, failures, phase.MaxFailures)
			phaseResults = append(phaseResults, phaseResult)
			if rollout.RollbackOnFailure {
				c.rollback(ctx, successfulRegions, agreedCID)
			}
			return PublishResult{CID: agreedCID, PerRegionStatus: perRegionStatus, TotalReplicas: len(perRegionStatus), Duration: time.Since(start), PhaseResults: phaseResults}, phaseResult.Err
		}

		if phase.VerifyReplication && agreedCID != "" {
			ratio := c.verifyReplication(ctx, phase.Regions, agreedCID)
			verificationSummary[fmt.Sprintf("phase-%d", phase.PhaseNumber)] = ratio
			phaseResult.ReplicationVerified = ratio >= replicationQuorum
			if !phaseResult.ReplicationVerified {
				phaseResult.Err = fmt.Errorf("coordinator: phase %d: replication confirmation %.2f below quorum %.2f", phase.PhaseNumber, ratio, replicationQuorum)
				phaseResults = append(phaseResults, phaseResult)
				if rollout.RollbackOnFailure {
					c.rollback(ctx, successfulRegions, agreedCID)
				}
				return PublishResult{CID: agreedCID, PerRegionStatus: perRegionStatus, Duration: time.Since(start), PhaseResults: phaseResults}, phaseResult.Err
			}
		}

		phaseResults = append(phaseResults, phaseResult)
	}

	total := 0
	for _, ok := range perRegionStatus {
		if ok {
			total++
		}
	}

	return PublishResult{
		CID:                 agreedCID,
		PerRegionStatus:     perRegionStatus,
		TotalReplicas:       total,
		Duration:            time.Since(start),
		PhaseResults:        phaseResults,
		VerificationSummary: verificationSummary,
	}, nil
}

func (c *Coordinator) pinPhase(ctx context.Context, phase Phase, blob []byte, requiredSuccesses int) map[string]pin.RegionResult {
	results := make(map[string]pin.RegionResult, len(phase.Regions))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, region := range phase.Regions {
		svc, ok := c.regions[region]
		if !ok {
			mu.Lock()
			results[region] = pin.RegionResult{Success: false}
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(region string, svc RegionalPinner) {
			defer wg.Done()
			res, err := svc.PinToRegion(ctx, blob, requiredSuccesses)
			if err != nil {
				res.Success = false
			}
			mu.Lock()
			results[region] = res
			mu.Unlock()
		}(region, svc)
	}
	wg.Wait()
	return results
}

// verifyReplication confirms cid landed in every region in parallel via
// an errgroup — unlike pinPhase's fan-out, there is nothing per-region
// to collect beyond a yes/no, so an atomic counter plus errgroup's
// wait-for-all is a better fit than a WaitGroup and a results map.
func (c *Coordinator) verifyReplication(ctx context.Context, regions []string, cid string) float64 {
	if len(regions) == 0 {
		return 1
	}
	var confirmed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, region := range regions {
		svc, ok := c.regions[region]
		if !ok {
			continue
		}
		g.Go(func() error {
			ok2, err := svc.VerifyPin(gctx, cid)
			if err == nil && ok2 {
				confirmed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return float64(confirmed.Load()) / float64(len(regions))
}

func (c *Coordinator) rollback(ctx context.Context, regions []string, cid string) {
	if cid == "" {
		return
	}
	for _, region := range regions {
		svc, ok := c.regions[region]
		if !ok {
			continue
		}
		for _, err := range svc.UnpinRegion(ctx, cid) {
			c.log.Error("rollback unpin failed", zap.String("region", region), zap.String("cid", cid), zap.Error(err))
		}
	}
}
