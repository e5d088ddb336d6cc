// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetersPerDegree_EquatorMatchesMeridian(t *testing.T) {
	lon, lat := MetersPerDegree(0)
	require.InDelta(t, lat, lon, 1e-6, "at the equator, a degree of longitude spans the same distance as a degree of latitude")
}

func TestMetersPerDegree_ShrinksTowardPoles(t *testing.T) {
	equatorLon, _ := MetersPerDegree(0)
	midLon, _ := MetersPerDegree(60)
	require.Less(t, midLon, equatorLon, "a degree of longitude should span less distance at higher latitude")
}

func TestAreaScaleFactor_PositiveAndLatitudeDependent(t *testing.T) {
	equator := AreaScaleFactor(0)
	poleward := AreaScaleFactor(60)
	require.Greater(t, equator, 0.0)
	require.Greater(t, poleward, 0.0)
	require.Less(t, poleward, equator)
}

func TestReferenceLatitude_IsBBoxMidpoint(t *testing.T) {
	require.InDelta(t, 5.0, ReferenceLatitude(BBox{MinY: 0, MaxY: 10}), 1e-9)
}

func TestDistanceMeters_ZeroForIdenticalPoints(t *testing.T) {
	p := Point{X: 10, Y: 20}
	require.Zero(t, DistanceMeters(p, p, 20))
}

func TestDistanceMeters_OneDegreeLatitudeIsAbout111Kilometers(t *testing.T) {
	d := DistanceMeters(Point{X: 0, Y: 0}, Point{X: 0, Y: 1}, 0)
	require.Greater(t, d, 100_000.0)
	require.Less(t, d, 120_000.0)
}
