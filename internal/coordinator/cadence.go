// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package coordinator

import "time"

// BoundaryType distinguishes the update-cadence rules of spec §4.12.
type BoundaryType string

const (
	BoundaryVTD         BoundaryType = "vtd"
	BoundaryLegislative BoundaryType = "legislative"
	BoundaryOther       BoundaryType = "other"
)

// postRedistrictingYears are the years immediately following a decennial
// redistricting cycle, when VTDs catch up regardless of month.
var postRedistrictingYears = map[int]bool{2022: true, 2032: true, 2042: true}

// redistrictingFinalizationYears are the years a decennial redistricting
// cycle is finalized, when legislative layers may update any month.
var redistrictingFinalizationYears = map[int]bool{2021: true, 2031: true, 2041: true}

// ShouldUpdateBoundary reports whether a boundary of btype should update
// on date, per spec §4.12's VTD/legislative cadence rules.
func ShouldUpdateBoundary(btype BoundaryType, date time.Time) bool {
	switch btype {
	case BoundaryVTD:
		if postRedistrictingYears[date.Year()] {
			return true
		}
		return date.Month() <= time.March
	case BoundaryLegislative:
		if redistrictingFinalizationYears[date.Year()] {
			return true
		}
		return date.Month() > time.July
	default:
		return date.Month() > time.July
	}
}
