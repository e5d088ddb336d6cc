// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tessellation implements the Tessellation Prover: a four-axiom
// geometric proof that a set of district polygons tessellates a
// municipal boundary, per spec §4.5.
package tessellation

import (
	"fmt"

	"github.com/boundarynet/core/internal/geometry"
)

// Axiom identifies which of the four proof steps a candidate failed.
type Axiom string

const (
	AxiomCardinality   Axiom = "cardinality"
	AxiomExclusivity   Axiom = "exclusivity"
	AxiomContainment   Axiom = "containment"
	AxiomExhaustivity  Axiom = "exhaustivity"
)

// Config holds the tunable thresholds, defaulted per spec §4.5.
type Config struct {
	// OverlapEpsilon is the maximum tolerated pairwise overlap area, in
	// square meters. Default 150_000.
	OverlapEpsilon float64
	// OutsideRatio bounds area(union \ municipal) / area(union). Default 0.15.
	OutsideRatio float64
	// MinCoverage bounds area(union) / area(municipal) from below. Default 0.85.
	MinCoverage float64
	// MaxCoverageInland bounds coverage from above for inland jurisdictions.
	// Default 1.15.
	MaxCoverageInland float64
	// MaxCoverageCoastal bounds coverage from above once a jurisdiction is
	// classified coastal. Default 2.00.
	MaxCoverageCoastal float64
	// CoastalWaterRatio is the water-area fraction above which a
	// jurisdiction is classified coastal. Default 0.15.
	CoastalWaterRatio float64
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		OverlapEpsilon:     150_000,
		OutsideRatio:       0.15,
		MinCoverage:        0.85,
		MaxCoverageInland:  1.15,
		MaxCoverageCoastal: 2.00,
		CoastalWaterRatio:  0.15,
	}
}

// Exception overrides coverage bounds for one FIPS code, per spec §4.5's
// "per-FIPS exceptions override both bounds" rule.
type Exception struct {
	FIPS        string
	MinCoverage *float64
	MaxCoverage *float64
}

// Input bundles everything a single tessellation proof needs.
type Input struct {
	Districts               []geometry.Polygon
	Municipal                geometry.MultiPolygon
	ExpectedCount            int
	AuthoritativeLandArea    *float64
	AuthoritativeUnionArea   *float64
	WaterArea                *float64
	FIPS                     string
}

// OverlapPair names one offending district pair and its overlap area.
type OverlapPair struct {
	I, J int
	Area float64
}

// Measurements carries every diagnostic number the prover computed,
// returned regardless of outcome per spec §4.5.
type Measurements struct {
	MunicipalArea  float64
	UnionArea      float64
	OutsideArea    float64
	UncoveredArea  float64
	CoverageRatio  float64
	OverlapTotal   float64
	OffendingPairs []OverlapPair
}

// Result is the binary verdict plus diagnostics.
type Result struct {
	Valid           bool
	FailedAxiom     Axiom
	Measurements    Measurements
	RemediationHint string
}

// Prove runs all four axioms in cost order, stopping at the first
// failure, per spec §4.5.
func Prove(cfg Config, in Input, exceptions map[string]Exception) (Result, error) {
	if cfg.OverlapEpsilon == 0 && cfg.OutsideRatio == 0 && cfg.MinCoverage == 0 {
		cfg = DefaultConfig()
	}

	// OverlapEpsilon is denominated in real square meters (spec §4.5),
	// but the geometry kernel's Area/OverlapArea work in raw (lon, lat)
	// degree² — scale converts between the two via an equirectangular
	// approximation keyed on the municipal boundary's own latitude, per
	// geometry.AreaScaleFactor.
	scale := referenceScale(in)

	// Axiom 1: cardinality.
	if len(in.Districts) != in.ExpectedCount {
		return Result{
			Valid:       false,
			FailedAxiom: AxiomCardinality,
			Measurements: Measurements{
				MunicipalArea: municipalArea(in, scale),
			},
			RemediationHint: cardinalityHint(len(in.Districts), in.ExpectedCount),
		}, nil
	}

	// Axiom 2: exclusivity.
	overlapTotal := 0.0
	var offending []OverlapPair
	for i := 0; i < len(in.Districts); i++ {
		for j := i + 1; j < len(in.Districts); j++ {
			area := geometry.OverlapArea(in.Districts[i], in.Districts[j]) * scale
			if area > 0 {
				overlapTotal += area
			}
			if area > cfg.OverlapEpsilon {
				offending = append(offending, OverlapPair{I: i, J: j, Area: area})
			}
		}
	}
	if len(offending) > 0 {
		return Result{
			Valid:       false,
			FailedAxiom: AxiomExclusivity,
			Measurements: Measurements{
				MunicipalArea:  municipalArea(in, scale),
				OverlapTotal:   overlapTotal,
				OffendingPairs: offending,
			},
			RemediationHint: "duplicate features: two or more districts overlap beyond tolerance, likely a re-submitted or duplicate layer",
		}, nil
	}

	unionRegion := geometry.UnionOfPolygons(in.Districts)
	unionArea := resolvedUnionArea(in, unionRegion, scale)
	munArea := municipalArea(in, scale)

	// Axiom 3: containment.
	outsideArea := outsideMunicipalArea(in, unionRegion, scale)
	var outsideRatio float64
	if unionArea > 0 {
		outsideRatio = outsideArea / unionArea
	}
	if outsideRatio > cfg.OutsideRatio {
		return Result{
			Valid:       false,
			FailedAxiom: AxiomContainment,
			Measurements: Measurements{
				MunicipalArea: munArea,
				UnionArea:     unionArea,
				OutsideArea:   outsideArea,
				OverlapTotal:  overlapTotal,
			},
			RemediationHint: "wrong jurisdiction: a material share of the district union falls outside the municipal boundary",
		}, nil
	}

	// Axiom 4: exhaustivity.
	var coverage float64
	if munArea > 0 {
		coverage = unionArea / munArea
	}
	minCov, maxCov := cfg.MinCoverage, coverageMax(cfg, in)
	if ex, ok := exceptions[in.FIPS]; ok {
		if ex.MinCoverage != nil {
			minCov = *ex.MinCoverage
		}
		if ex.MaxCoverage != nil {
			maxCov = *ex.MaxCoverage
		}
	}

	uncovered := munArea - unionArea
	if uncovered < 0 {
		uncovered = 0
	}

	m := Measurements{
		MunicipalArea:  munArea,
		UnionArea:      unionArea,
		OutsideArea:    outsideArea,
		UncoveredArea:  uncovered,
		CoverageRatio:  coverage,
		OverlapTotal:   overlapTotal,
		OffendingPairs: offending,
	}

	if coverage < minCov {
		return Result{
			Valid: false, FailedAxiom: AxiomExhaustivity, Measurements: m,
			RemediationHint: "wrong vintage: coverage is too low, the district layer likely predates the current municipal boundary",
		}, nil
	}
	if coverage > maxCov {
		return Result{
			Valid: false, FailedAxiom: AxiomExhaustivity, Measurements: m,
			RemediationHint: "wrong granularity: coverage exceeds the municipal boundary by more than tolerance, the layer may cover a larger jurisdiction (e.g. county for city)",
		}, nil
	}

	return Result{Valid: true, Measurements: m}, nil
}

func cardinalityHint(actual, expected int) string {
	if actual > expected {
		return fmt.Sprintf("duplicate features: got %d districts, expected %d — check for duplicate or split features", actual, expected)
	}
	return fmt.Sprintf("wrong granularity: got %d districts, expected %d — source may be missing features or using the wrong layer", actual, expected)
}

// referenceScale derives the square-meters-per-square-degree conversion
// factor from the municipal boundary's own latitude span. Every district
// in a candidate shares that municipal boundary, so one reference
// latitude is adequate for every area this proof computes — anchoring it
// to the boundary being tested (rather than, say, the equator) keeps the
// approximation centered on the geometry in play.
func referenceScale(in Input) float64 {
	bbox := geometry.MultiPolygonRegion{MP: in.Municipal}.BBox()
	return geometry.AreaScaleFactor(geometry.ReferenceLatitude(bbox))
}

// municipalArea prefers the registry's authoritative land+water figures
// (already real square meters, per mbr.Municipality) over the polygon's
// own shoelace area, which needs scale to mean square meters.
func municipalArea(in Input, scale float64) float64 {
	if in.AuthoritativeLandArea != nil {
		area := *in.AuthoritativeLandArea
		if in.WaterArea != nil {
			area += *in.WaterArea
		}
		return area
	}
	total := 0.0
	for _, p := range in.Municipal {
		total += geometry.PolygonArea(p)
	}
	return total * scale
}

// resolvedUnionArea prefers an authoritative figure when the caller has
// one; no such figure exists for a computed union of district polygons
// in this codebase, so in practice this always falls through to the
// geometry kernel's quadrature, converted to square meters by scale.
func resolvedUnionArea(in Input, unionRegion geometry.Region, scale float64) float64 {
	if in.AuthoritativeUnionArea != nil {
		return *in.AuthoritativeUnionArea
	}
	return geometry.Area(unionRegion, 18) * scale
}

func outsideMunicipalArea(in Input, unionRegion geometry.Region, scale float64) float64 {
	municipalRegion := geometry.MultiPolygonRegion{MP: in.Municipal}
	diff := geometry.Difference(unionRegion, municipalRegion)
	return geometry.Area(diff, 18) * scale
}

func coverageMax(cfg Config, in Input) float64 {
	if in.WaterArea == nil || in.AuthoritativeLandArea == nil {
		return cfg.MaxCoverageInland
	}
	total := *in.AuthoritativeLandArea + *in.WaterArea
	if total <= 0 {
		return cfg.MaxCoverageInland
	}
	if *in.WaterArea/total > cfg.CoastalWaterRatio {
		return cfg.MaxCoverageCoastal
	}
	return cfg.MaxCoverageInland
}
