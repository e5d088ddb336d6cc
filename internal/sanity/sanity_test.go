// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package sanity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/boundarynet/core/internal/geometry"
)

func square(x0, y0, x1, y1 float64) geometry.Polygon {
	return geometry.Polygon{Outer: geometry.Ring{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
	}}
}

func TestRun_Passes(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	districts := []geometry.Polygon{
		square(0, 0, 5, 10),
		square(5, 0, 10, 10),
	}
	res, err := Run(NewConfig(), municipal, districts, 2)
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.InDelta(t, 1.0, res.FeatureCountRatio, 1e-9)
}

func TestRun_FeatureCountRatioFails(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	districts := []geometry.Polygon{square(0, 0, 10, 10)}
	cfg := NewConfig()
	res, err := Run(cfg, municipal, districts, 10)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, CheckFeatureCountRatio, res.FailedCheck)
}

func TestRun_CentroidProximityFails(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	// District cluster centered far away from the municipal centroid.
	districts := []geometry.Polygon{square(1_000_000, 1_000_000, 1_000_010, 1_000_010)}
	cfg := NewConfig()
	res, err := Run(cfg, municipal, districts, 1)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, CheckCentroidProximity, res.FailedCheck)
}

func TestRun_ZeroExpectedCountYieldsInfiniteRatio(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	districts := []geometry.Polygon{square(0, 0, 10, 10)}
	res, err := Run(NewConfig(), municipal, districts, 0)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, CheckFeatureCountRatio, res.FailedCheck)
}
