// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package geometry implements the planar geometry kernel: ray-casting
// point-in-polygon tests, polygon area and centroid, winding
// normalization, and the boolean set operations the tessellation prover
// needs (union, intersect, difference).
//
// Coordinates are (lon, lat) pairs. Area and distance are computed on the
// raw planar coordinates, which is an adequate approximation for
// relative comparisons at district scale (error <1%, per spec) but is
// not geodesic: a raw area is in degree², not square meters, and a raw
// distance is in degrees, not meters. scale.go's MetersPerDegree,
// AreaScaleFactor and DistanceMeters convert through an equirectangular
// approximation keyed on a reference latitude; callers that compare
// against a meter- or square-meter-denominated threshold (the sanity
// checker, the tessellation prover) go through those before comparing.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Point is a planar coordinate, (lon, lat) order.
type Point struct {
	X float64
	Y float64
}

// BBox is an axis-aligned bounding box.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether p falls within the box, inclusive of the edges.
func (b BBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Union returns the smallest box enclosing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Ring is a closed linear ring: first and last coordinate must be equal.
type Ring []Point

// Polygon is an outer ring plus zero or more interior (hole) rings.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// MultiPolygon is a collection of disjoint (or near-disjoint) polygons.
type MultiPolygon []Polygon

// Sentinel structural errors. These are reported, never retried, per the
// propagation policy in spec §7: structural geometry errors are not
// transient and must surface to the caller immediately.
var (
	ErrRingTooShort    = errors.New("geometry: ring has fewer than 4 coordinates")
	ErrRingNotClosed   = errors.New("geometry: ring's first and last coordinates differ")
	ErrEmptyPolygon    = errors.New("geometry: polygon has no outer ring")
	ErrDegenerateRing  = errors.New("geometry: ring encloses zero area")
)

// SelfIntersectionError reports a detected self-intersection, carrying a
// witness point so callers can render or log exactly where the ring
// crosses itself.
type SelfIntersectionError struct {
	Witness Point
}

func (e *SelfIntersectionError) Error() string {
	return fmt.Sprintf("geometry: self-intersecting ring at (%.6f, %.6f)", e.Witness.X, e.Witness.Y)
}

// HoleOverlapError reports a hole ring that is not fully contained by the
// polygon's outer ring.
type HoleOverlapError struct {
	HoleIndex int
	Witness   Point
}

func (e *HoleOverlapError) Error() string {
	return fmt.Sprintf("geometry: hole %d escapes outer ring boundary near (%.6f, %.6f)", e.HoleIndex, e.Witness.X, e.Witness.Y)
}

// ValidateRing checks the structural invariants from spec §3: at least 4
// coordinates, first equal to last, and non-zero enclosed area. It does
// not check self-intersection; use DetectSelfIntersection for that.
func ValidateRing(r Ring) error {
	if len(r) < 4 {
		return ErrRingTooShort
	}
	first, last := r[0], r[len(r)-1]
	if first.X != last.X || first.Y != last.Y {
		return ErrRingNotClosed
	}
	if signedArea(r) == 0 {
		return ErrDegenerateRing
	}
	return nil
}

// signedArea computes twice the signed area of the ring via the shoelace
// formula. Positive means counter-clockwise winding.
func signedArea(r Ring) float64 {
	var sum float64
	n := len(r)
	for i := 0; i < n-1; i++ {
		sum += r[i].X*r[i+1].Y - r[i+1].X*r[i].Y
	}
	return sum
}

// PolygonArea returns the planar area of a polygon (outer minus holes),
// always non-negative regardless of ring winding.
func PolygonArea(p Polygon) float64 {
	area := math.Abs(signedArea(p.Outer)) / 2
	for _, h := range p.Holes {
		area -= math.Abs(signedArea(h)) / 2
	}
	if area < 0 {
		return 0
	}
	return area
}

// MultiPolygonArea sums the area of every constituent polygon.
func MultiPolygonArea(mp MultiPolygon) float64 {
	var total float64
	for _, p := range mp {
		total += PolygonArea(p)
	}
	return total
}

// PolygonCentroid returns the area-weighted centroid of the outer ring,
// ignoring holes (adequate for the proximity checks this kernel serves;
// callers that need a hole-aware centroid should difference the holes
// out with Difference first).
func PolygonCentroid(p Polygon) (Point, error) {
	if len(p.Outer) == 0 {
		return Point{}, ErrEmptyPolygon
	}
	var cx, cy, area float64
	r := p.Outer
	n := len(r)
	for i := 0; i < n-1; i++ {
		cross := r[i].X*r[i+1].Y - r[i+1].X*r[i].Y
		cx += (r[i].X + r[i+1].X) * cross
		cy += (r[i].Y + r[i+1].Y) * cross
		area += cross
	}
	area /= 2
	if area == 0 {
		return Point{}, ErrDegenerateRing
	}
	cx /= 6 * area
	cy /= 6 * area
	return Point{X: cx, Y: cy}, nil
}

// Rewind normalizes winding: the outer ring becomes counter-clockwise,
// holes become clockwise, per spec §4.1.
func Rewind(p Polygon) Polygon {
	out := Polygon{Outer: rewindRing(p.Outer, true)}
	out.Holes = make([]Ring, len(p.Holes))
	for i, h := range p.Holes {
		out.Holes[i] = rewindRing(h, false)
	}
	return out
}

func rewindRing(r Ring, ccw bool) Ring {
	area := signedArea(r)
	isCCW := area > 0
	if isCCW == ccw {
		cp := make(Ring, len(r))
		copy(cp, r)
		return cp
	}
	reversed := make(Ring, len(r))
	for i, p := range r {
		reversed[len(r)-1-i] = p
	}
	return reversed
}

// BoundingBox computes the tightest enclosing box for a ring.
func BoundingBox(r Ring) BBox {
	if len(r) == 0 {
		return BBox{}
	}
	b := BBox{MinX: r[0].X, MinY: r[0].Y, MaxX: r[0].X, MaxY: r[0].Y}
	for _, p := range r[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// PolygonBBox computes the box enclosing the outer ring (holes are
// always interior to it, so they never widen the box).
func PolygonBBox(p Polygon) BBox {
	return BoundingBox(p.Outer)
}
