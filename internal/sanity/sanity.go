// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sanity implements the Sanity Checker: two deterministic checks
// run between the Structure and Full tiers of the Ingestion Validator,
// per spec §4.4.
package sanity

import (
	"fmt"
	"math"

	"github.com/boundarynet/core/internal/geometry"
)

// Check names which of the two sanity checks failed, if any.
type Check string

const (
	CheckCentroidProximity Check = "centroid_proximity"
	CheckFeatureCountRatio Check = "feature_count_ratio"
)

// Config bounds the two checks. Zero values are replaced with the
// spec-mandated defaults by NewConfig.
type Config struct {
	// MaxCentroidDistanceMeters is the maximum allowed distance between
	// the union-of-districts centroid and the municipal centroid.
	// Default 50_000 (50 km). Centroids arrive as raw (lon, lat) degree
	// coordinates; Run converts through geometry.DistanceMeters before
	// comparing against this, so this package does no ellipsoidal
	// geodesy of its own beyond that equirectangular approximation.
	MaxCentroidDistanceMeters float64
	// FeatureCountRatio bounds actual/expected to [1/R, R]. Default 3.
	FeatureCountRatio float64
}

// NewConfig returns Config with the spec's default thresholds.
func NewConfig() Config {
	return Config{MaxCentroidDistanceMeters: 50_000, FeatureCountRatio: 3}
}

func (c Config) withDefaults() Config {
	if c.MaxCentroidDistanceMeters <= 0 {
		c.MaxCentroidDistanceMeters = 50_000
	}
	if c.FeatureCountRatio <= 0 {
		c.FeatureCountRatio = 3
	}
	return c
}

// Result reports the outcome of both checks with their numeric witnesses.
type Result struct {
	Valid           bool
	FailedCheck     Check
	CentroidDistance   float64
	FeatureCountRatio  float64
	ActualFeatures     int
	ExpectedFeatures   int
}

// Run evaluates both checks in order, stopping at the first failure
// (centroid proximity, then feature count ratio), per spec §4.4.
func Run(cfg Config, municipal geometry.MultiPolygon, districts []geometry.Polygon, expectedCount int) (Result, error) {
	cfg = cfg.withDefaults()

	municipalCentroid, err := multiPolygonCentroid(municipal)
	if err != nil {
		return Result{}, fmt.Errorf("sanity: municipal centroid: %w", err)
	}

	unionRegion := geometry.UnionOfPolygons(districts)
	districtsCentroid, err := regionCentroid(unionRegion, municipal)
	if err != nil {
		return Result{}, fmt.Errorf("sanity: district union centroid: %w", err)
	}

	dist := geometry.DistanceMeters(municipalCentroid, districtsCentroid, municipalCentroid.Y)
	ratio := float64(len(districts)) / float64(expectedCount)
	if expectedCount == 0 {
		ratio = math.Inf(1)
	}

	result := Result{
		Valid:             true,
		CentroidDistance:  dist,
		FeatureCountRatio: ratio,
		ActualFeatures:    len(districts),
		ExpectedFeatures:  expectedCount,
	}

	if dist > cfg.MaxCentroidDistanceMeters {
		result.Valid = false
		result.FailedCheck = CheckCentroidProximity
		return result, nil
	}

	lower := 1 / cfg.FeatureCountRatio
	upper := cfg.FeatureCountRatio
	if ratio < lower || ratio > upper {
		result.Valid = false
		result.FailedCheck = CheckFeatureCountRatio
		return result, nil
	}

	return result, nil
}

func multiPolygonCentroid(mp geometry.MultiPolygon) (geometry.Point, error) {
	if len(mp) == 0 {
		return geometry.Point{}, fmt.Errorf("empty multipolygon")
	}
	if len(mp) == 1 {
		return geometry.PolygonCentroid(mp[0])
	}
	// Area-weighted centroid of centroids across disjoint parts (e.g. an
	// archipelago city): each polygon's own centroid contributes in
	// proportion to its area.
	var sumX, sumY, totalArea float64
	for _, p := range mp {
		c, err := geometry.PolygonCentroid(p)
		if err != nil {
			continue
		}
		a := geometry.PolygonArea(p)
		sumX += c.X * a
		sumY += c.Y * a
		totalArea += a
	}
	if totalArea == 0 {
		return geometry.Point{}, fmt.Errorf("zero-area multipolygon")
	}
	return geometry.Point{X: sumX / totalArea, Y: sumY / totalArea}, nil
}

// regionCentroid estimates the centroid of an arbitrary Region (here, the
// union of all district polygons) as the mean of the cell centres of a
// 64x64 grid over the region's own bounding box that fall inside the
// region. A degenerate bounding box falls back to the municipal centroid.
func regionCentroid(r geometry.Region, municipal geometry.MultiPolygon) (geometry.Point, error) {
	bbox := r.BBox()
	if bbox.MaxX <= bbox.MinX || bbox.MaxY <= bbox.MinY {
		return multiPolygonCentroid(municipal)
	}
	const grid = 64
	var sumX, sumY, count float64
	dx := (bbox.MaxX - bbox.MinX) / grid
	dy := (bbox.MaxY - bbox.MinY) / grid
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			pt := geometry.Point{
				X: bbox.MinX + (float64(i)+0.5)*dx,
				Y: bbox.MinY + (float64(j)+0.5)*dy,
			}
			if r.Contains(pt) {
				sumX += pt.X
				sumY += pt.Y
				count++
			}
		}
	}
	if count == 0 {
		return geometry.Point{}, fmt.Errorf("region contains no sampled points")
	}
	return geometry.Point{X: sumX / count, Y: sumY / count}, nil
}
