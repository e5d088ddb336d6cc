// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pip implements the Point-in-Polygon Engine: bbox-prefiltered
// ray casting with precision-ordered results, per spec §4.7.
package pip

import (
	"sort"

	"github.com/boundarynet/core/internal/geometry"
)

// Precision is a boundary layer's granularity. Lower rank (see
// precisionRank) means finer.
type Precision string

const (
	PrecisionVotingPrecinct       Precision = "voting_precinct"
	PrecisionCityCouncilDistrict  Precision = "city_council_district"
	PrecisionWard                 Precision = "ward"
	PrecisionCityLimits           Precision = "city_limits"
	PrecisionMunicipal            Precision = "municipal"
	PrecisionCounty               Precision = "county"
	PrecisionStateSenate          Precision = "state_senate"
	PrecisionStateHouse           Precision = "state_house"
	PrecisionCongressional        Precision = "congressional"
	PrecisionStateProvince        Precision = "state_province"
	PrecisionCountry              Precision = "country"
)

// precisionRank orders precisions finest-to-coarsest per spec §4.7.
var precisionRank = map[Precision]int{
	PrecisionVotingPrecinct:      0,
	PrecisionCityCouncilDistrict: 1,
	PrecisionWard:                2,
	PrecisionCityLimits:          3,
	PrecisionMunicipal:           4,
	PrecisionCounty:              5,
	PrecisionStateSenate:         6,
	PrecisionStateHouse:          7,
	PrecisionCongressional:       8,
	PrecisionStateProvince:       9,
	PrecisionCountry:             10,
}

// Rank returns p's sort key, or the coarsest-plus-one rank for an
// unrecognized precision (so unknown layers sort last rather than panic).
func Rank(p Precision) int {
	if r, ok := precisionRank[p]; ok {
		return r
	}
	return len(precisionRank)
}

// Boundary is one candidate polygon with its identity and precision.
type Boundary struct {
	ID        string
	Precision Precision
	Geometry  geometry.MultiPolygon
	BBox      geometry.BBox
}

// NewBoundary computes and caches BBox from Geometry.
func NewBoundary(id string, precision Precision, mp geometry.MultiPolygon) Boundary {
	var bbox geometry.BBox
	for i, p := range mp {
		pb := geometry.PolygonBBox(p)
		if i == 0 {
			bbox = pb
		} else {
			bbox = bbox.Union(pb)
		}
	}
	return Boundary{ID: id, Precision: precision, Geometry: mp, BBox: bbox}
}

// FindContainingBoundaries filters candidates by bbox, then full PIP, and
// sorts survivors by precision ascending, ties broken lexicographically
// by boundary ID, per spec §4.7.
func FindContainingBoundaries(pt geometry.Point, candidates []Boundary) []Boundary {
	var matches []Boundary
	for _, b := range candidates {
		if !b.BBox.Contains(pt) {
			continue
		}
		if geometry.PointInMultiPolygon(pt, b.Geometry) {
			matches = append(matches, b)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := Rank(matches[i].Precision), Rank(matches[j].Precision)
		if ri != rj {
			return ri < rj
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}

// FindFinest returns the finest-precision match, if any.
func FindFinest(pt geometry.Point, candidates []Boundary) (Boundary, bool) {
	matches := FindContainingBoundaries(pt, candidates)
	if len(matches) == 0 {
		return Boundary{}, false
	}
	return matches[0], true
}

// AtPrecision returns the first match at exactly the given precision.
func AtPrecision(pt geometry.Point, candidates []Boundary, precision Precision) (Boundary, bool) {
	matches := FindContainingBoundaries(pt, candidates)
	for _, m := range matches {
		if m.Precision == precision {
			return m, true
		}
	}
	return Boundary{}, false
}
