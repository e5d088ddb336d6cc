// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package geometry

// PointInRing runs the standard horizontal ray-casting test against a
// single ring. Points exactly on an edge or vertex (horizontal edges
// included) are detected up front by onBoundary and reported inside;
// the crossing test then counts an edge only when its endpoints lie on
// opposite sides of the point's y (one end above, the other at or
// below), so a vertex shared by two edges is never counted twice.
func PointInRing(pt Point, r Ring) bool {
	if len(r) < 4 {
		return false
	}
	if onBoundary(pt, r) {
		return true
	}
	inside := false
	n := len(r)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := r[i], r[j]
		if (pi.Y > pt.Y) != (pj.Y > pt.Y) {
			xIntersect := pi.X + (pt.Y-pi.Y)*(pj.X-pi.X)/(pj.Y-pi.Y)
			if pt.X < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

// onBoundary reports whether pt lies exactly on any edge of the ring,
// including vertices.
func onBoundary(pt Point, r Ring) bool {
	n := len(r)
	for i := 0; i < n-1; i++ {
		a, b := r[i], r[i+1]
		if onSegment(pt, a, b) {
			return true
		}
	}
	return false
}

func onSegment(pt, a, b Point) bool {
	cross := (b.X-a.X)*(pt.Y-a.Y) - (b.Y-a.Y)*(pt.X-a.X)
	if cross != 0 {
		return false
	}
	minX, maxX := a.X, b.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := a.Y, b.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return pt.X >= minX && pt.X <= maxX && pt.Y >= minY && pt.Y <= maxY
}

// PointInPolygon reports whether pt is inside the outer ring and not
// strictly inside any hole.
func PointInPolygon(pt Point, p Polygon) bool {
	if !PolygonBBox(p).Contains(pt) {
		return false
	}
	if !PointInRing(pt, p.Outer) {
		return false
	}
	for _, h := range p.Holes {
		if strictlyInRing(pt, h) {
			return false
		}
	}
	return true
}

// strictlyInRing is PointInRing but a point exactly on the hole's
// boundary does NOT count as "inside the hole" — it remains part of the
// filled polygon, matching the spec's "not strictly inside any hole"
// wording.
func strictlyInRing(pt Point, r Ring) bool {
	if onBoundary(pt, r) {
		return false
	}
	return PointInRing(pt, r)
}

// PointInMultiPolygon reports whether pt falls inside any constituent
// polygon of mp.
func PointInMultiPolygon(pt Point, mp MultiPolygon) bool {
	for _, p := range mp {
		if PointInPolygon(pt, p) {
			return true
		}
	}
	return false
}

// DetectSelfIntersection tests the outer ring for pairwise non-adjacent
// segment intersection, returning a witness SelfIntersectionError on the
// first crossing found, or nil if the ring is simple.
func DetectSelfIntersection(r Ring) error {
	n := len(r)
	if n < 4 {
		return nil
	}
	segCount := n - 1
	for i := 0; i < segCount; i++ {
		a1, a2 := r[i], r[i+1]
		for j := i + 1; j < segCount; j++ {
			if adjacent(i, j, segCount) {
				continue
			}
			b1, b2 := r[j], r[j+1]
			if pt, ok := segmentIntersection(a1, a2, b1, b2); ok {
				return &SelfIntersectionError{Witness: pt}
			}
		}
	}
	return nil
}

// adjacent reports whether segments i and j share an endpoint in a
// closed ring of segCount segments (segment segCount-1 wraps to segment 0).
func adjacent(i, j, segCount int) bool {
	if i == j {
		return true
	}
	if j == i+1 {
		return true
	}
	if i == 0 && j == segCount-1 {
		return true
	}
	return false
}

// segmentIntersection returns the intersection point of segments p1p2
// and p3p4, if one exists within both segments' bounds.
func segmentIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d1x, d1y := p2.X-p1.X, p2.Y-p1.Y
	d2x, d2y := p4.X-p3.X, p4.Y-p3.Y
	denom := d1x*d2y - d1y*d2x
	if denom == 0 {
		return Point{}, false
	}
	dx, dy := p3.X-p1.X, p3.Y-p1.Y
	t := (dx*d2y - dy*d2x) / denom
	u := (dx*d1y - dy*d1x) / denom
	const eps = 1e-12
	if t < -eps || t > 1+eps || u < -eps || u > 1+eps {
		return Point{}, false
	}
	return Point{X: p1.X + t*d1x, Y: p1.Y + t*d1y}, true
}

// HoleOverlapsOuter tests whether any vertex of a hole ring falls
// outside the outer ring, returning a witness HoleOverlapError if so.
func HoleOverlapsOuter(outer Ring, holes []Ring) error {
	for idx, h := range holes {
		for _, v := range h {
			if !PointInRing(v, outer) {
				return &HoleOverlapError{HoleIndex: idx, Witness: v}
			}
		}
	}
	return nil
}
