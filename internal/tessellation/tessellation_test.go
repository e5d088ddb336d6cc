// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package tessellation

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

func TestProve_Valid(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	districts := []geometry.Polygon{
		square(0, 0, 5, 10),
		square(5, 0, 10, 10),
	}
	res, err := Prove(DefaultConfig(), Input{
		Districts: districts, Municipal: municipal, ExpectedCount: 2,
	}, nil)
	require.NoError(t, err)
	require.True(t, res.Valid, "hint: %s", res.RemediationHint)
	require.InDelta(t, 1.0, res.Measurements.CoverageRatio, 0.02)
}

func TestProve_CardinalityFails(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	districts := []geometry.Polygon{square(0, 0, 10, 10)}
	res, err := Prove(DefaultConfig(), Input{
		Districts: districts, Municipal: municipal, ExpectedCount: 5,
	}, nil)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, AxiomCardinality, res.FailedAxiom)
}

func TestProve_ExclusivityFails(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	// Heavily overlapping districts: both cover nearly the whole
	// municipality. The raw overlap here is 80 square degrees, which
	// OverlapEpsilon's square-meter scale converts to well beyond
	// 150,000 — the exclusivity axiom compares real square meters, not
	// raw degree², so this only fails because Prove converts first.
	districts := []geometry.Polygon{
		square(0, 0, 9, 10),
		square(1, 0, 10, 10),
	}
	res, err := Prove(DefaultConfig(), Input{
		Districts: districts, Municipal: municipal, ExpectedCount: 2,
	}, nil)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, AxiomExclusivity, res.FailedAxiom)
	require.NotEmpty(t, res.Measurements.OffendingPairs)
}

func TestProve_ContainmentFails(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	// District extends far outside the municipal boundary.
	districts := []geometry.Polygon{square(0, 0, 100, 100)}
	res, err := Prove(DefaultConfig(), Input{
		Districts: districts, Municipal: municipal, ExpectedCount: 1,
	}, nil)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, AxiomContainment, res.FailedAxiom)
}

func TestProve_ExhaustivityFailsLowCoverage(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	districts := []geometry.Polygon{square(0, 0, 2, 2)}
	res, err := Prove(DefaultConfig(), Input{
		Districts: districts, Municipal: municipal, ExpectedCount: 1,
	}, nil)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Equal(t, AxiomExhaustivity, res.FailedAxiom)
}

func TestProve_CoastalRaisesMaxCoverage(t *testing.T) {
	// District union exactly matches the municipal polygon (no
	// outside/uncovered area), but the authoritative land+water figures
	// — real square meters, unlike the polygon's own raw-degree² area —
	// are smaller than the union once converted, pushing coverage above
	// 115%. Inland that fails exhaustivity; classified coastal (water
	// ratio > 15% of land+water) the 200% ceiling lets it pass.
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	districts := []geometry.Polygon{square(0, 0, 10, 10)}

	bbox := geometry.MultiPolygonRegion{MP: municipal}.BBox()
	unionAreaMeters := 100 * geometry.AreaScaleFactor(geometry.ReferenceLatitude(bbox))
	total := unionAreaMeters / 1.667
	water := total * 0.2
	land := total - water

	res, err := Prove(DefaultConfig(), Input{
		Districts: districts, Municipal: municipal, ExpectedCount: 1,
		AuthoritativeLandArea: &land, WaterArea: &water,
	}, nil)
	require.NoError(t, err)
	require.True(t, res.Valid, "hint: %s", res.RemediationHint)
	require.Greater(t, res.Measurements.CoverageRatio, 1.15)
}

func TestProve_PerFIPSExceptionOverridesBounds(t *testing.T) {
	municipal := geometry.MultiPolygon{square(0, 0, 10, 10)}
	districts := []geometry.Polygon{square(0, 0, 2, 2)}
	low := 0.01
	res, err := Prove(DefaultConfig(), Input{
		Districts: districts, Municipal: municipal, ExpectedCount: 1, FIPS: "0622000",
	}, map[string]Exception{
		"0622000": {MinCoverage: &low},
	})
	require.NoError(t, err)
	require.True(t, res.Valid)
}
