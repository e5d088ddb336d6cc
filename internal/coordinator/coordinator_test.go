// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boundarynet/core/internal/pin"
	"github.com/stretchr/testify/require"
)

type fakeRegion struct {
	pinCID    string
	pinErr    error
	verifyOK  bool
	verifyErr error
	unpinned  []string
}

func (f *fakeRegion) PinToRegion(_ context.Context, _ []byte, _ int) (pin.RegionResult, error) {
	if f.pinErr != nil {
		return pin.RegionResult{Success: false}, f.pinErr
	}
	return pin.RegionResult{Success: true, CID: f.pinCID, SuccessCount: 1}, nil
}

func (f *fakeRegion) VerifyPin(_ context.Context, cid string) (bool, error) {
	return f.verifyOK, f.verifyErr
}

func (f *fakeRegion) UnpinRegion(_ context.Context, cid string) []error {
	f.unpinned = append(f.unpinned, cid)
	return nil
}

func TestPublish_SinglePhaseAllRegionsSucceed(t *testing.T) {
	regions := map[string]RegionalPinner{
		"us-east": &fakeRegion{pinCID: "bafyABC"},
		"us-west": &fakeRegion{pinCID: "bafyABC"},
	}
	c := New(regions, nil)
	rollout := Rollout{Phases: []Phase{
		{PhaseNumber: 1, Regions: []string{"us-east", "us-west"}, MaxFailures: 0},
	}}

	res, err := c.Publish(context.Background(), rollout, []byte("data"), 1)
	require.NoError(t, err)
	require.Equal(t, "bafyABC", res.CID)
	require.Equal(t, 2, res.TotalReplicas)
	require.True(t, res.PerRegionStatus["us-east"])
	require.True(t, res.PerRegionStatus["us-west"])
}

func TestPublish_CIDMismatchCountsAsFailure(t *testing.T) {
	regions := map[string]RegionalPinner{
		"us-east": &fakeRegion{pinCID: "bafyABC"},
		"us-west": &fakeRegion{pinCID: "bafyXYZ"},
	}
	c := New(regions, nil)
	rollout := Rollout{Phases: []Phase{
		{PhaseNumber: 1, Regions: []string{"us-east", "us-west"}, MaxFailures: 0},
	}}

	res, err := c.Publish(context.Background(), rollout, []byte("data"), 1)
	require.Error(t, err)
	require.Equal(t, 1, res.TotalReplicas)
}

func TestPublish_ExceedsMaxFailuresTriggersRollbackWhenSet(t *testing.T) {
	good := &fakeRegion{pinCID: "bafyABC"}
	bad := &fakeRegion{pinErr: errors.New("region down")}
	regions := map[string]RegionalPinner{"us-east": good, "us-west": bad}
	c := New(regions, nil)
	rollout := Rollout{
		RollbackOnFailure: true,
		Phases: []Phase{
			{PhaseNumber: 1, Regions: []string{"us-east", "us-west"}, MaxFailures: 0},
		},
	}

	_, err := c.Publish(context.Background(), rollout, []byte("data"), 1)
	require.Error(t, err)
	require.Equal(t, []string{"bafyABC"}, good.unpinned, "the already-successful region must be rolled back")
}

func TestPublish_NoRollbackWhenNotConfigured(t *testing.T) {
	good := &fakeRegion{pinCID: "bafyABC"}
	bad := &fakeRegion{pinErr: errors.New("region down")}
	regions := map[string]RegionalPinner{"us-east": good, "us-west": bad}
	c := New(regions, nil)
	rollout := Rollout{
		RollbackOnFailure: false,
		Phases: []Phase{
			{PhaseNumber: 1, Regions: []string{"us-east", "us-west"}, MaxFailures: 0},
		},
	}

	_, err := c.Publish(context.Background(), rollout, []byte("data"), 1)
	require.Error(t, err)
	require.Empty(t, good.unpinned)
}

func TestPublish_VerifyReplicationBelowQuorumFails(t *testing.T) {
	regions := map[string]RegionalPinner{
		"us-east": &fakeRegion{pinCID: "bafyABC", verifyOK: false},
		"us-west": &fakeRegion{pinCID: "bafyABC", verifyOK: false},
		"eu-west": &fakeRegion{pinCID: "bafyABC", verifyOK: true},
	}
	c := New(regions, nil)
	rollout := Rollout{Phases: []Phase{
		{PhaseNumber: 1, Regions: []string{"us-east", "us-west", "eu-west"}, MaxFailures: 0, VerifyReplication: true},
	}}

	res, err := c.Publish(context.Background(), rollout, []byte("data"), 1)
	require.Error(t, err, "1/3 confirmed is below the 80% quorum")
	require.Len(t, res.PhaseResults, 1)
	require.False(t, res.PhaseResults[0].ReplicationVerified)
}

func TestPublish_VerifyReplicationAboveQuorumPasses(t *testing.T) {
	regions := map[string]RegionalPinner{
		"us-east": &fakeRegion{pinCID: "bafyABC", verifyOK: true},
		"us-west": &fakeRegion{pinCID: "bafyABC", verifyOK: true},
		"eu-west": &fakeRegion{pinCID: "bafyABC", verifyOK: true},
	}
	c := New(regions, nil)
	rollout := Rollout{Phases: []Phase{
		{PhaseNumber: 1, Regions: []string{"us-east", "us-west", "eu-west"}, MaxFailures: 0, VerifyReplication: true},
	}}

	res, err := c.Publish(context.Background(), rollout, []byte("data"), 1)
	require.NoError(t, err)
	require.True(t, res.PhaseResults[0].ReplicationVerified)
}

func TestPublish_MultiPhaseDelayBefore(t *testing.T) {
	regions := map[string]RegionalPinner{
		"us-east": &fakeRegion{pinCID: "bafyABC"},
		"eu-west": &fakeRegion{pinCID: "bafyABC"},
	}
	c := New(regions, nil)
	rollout := Rollout{Phases: []Phase{
		{PhaseNumber: 1, Regions: []string{"us-east"}, MaxFailures: 0},
		{PhaseNumber: 2, Regions: []string{"eu-west"}, DelayBefore: time.Millisecond, MaxFailures: 0},
	}}

	res, err := c.Publish(context.Background(), rollout, []byte("data"), 1)
	require.NoError(t, err)
	require.Equal(t, 2, res.TotalReplicas)
	require.Len(t, res.PhaseResults, 2)
}

func TestShouldUpdateBoundary_VTD(t *testing.T) {
	require.True(t, ShouldUpdateBoundary(BoundaryVTD, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, ShouldUpdateBoundary(BoundaryVTD, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, ShouldUpdateBoundary(BoundaryVTD, time.Date(2022, time.September, 1, 0, 0, 0, 0, time.UTC)), "post-redistricting year allows any month")
}

func TestShouldUpdateBoundary_Legislative(t *testing.T) {
	require.True(t, ShouldUpdateBoundary(BoundaryLegislative, time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, ShouldUpdateBoundary(BoundaryLegislative, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, ShouldUpdateBoundary(BoundaryLegislative, time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)), "redistricting finalization year allows any month")
}

func TestShouldUpdateBoundary_Other(t *testing.T) {
	require.True(t, ShouldUpdateBoundary(BoundaryOther, time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, ShouldUpdateBoundary(BoundaryOther, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
}
