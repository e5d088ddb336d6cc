// Copyright (C) 2026, Boundary Network Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package geometry

import "math"

// Region is anything the set operations can test membership against: a
// single polygon, a multipolygon, or a composite built from Union et al.
type Region interface {
	// Contains reports whether pt falls inside the region.
	Contains(pt Point) bool
	// BBox returns a bounding box enclosing the region (used to size the
	// adaptive quadrature grid; a loose box is fine, it only affects
	// how much empty space gets sampled).
	BBox() BBox
}

// PolygonRegion adapts a Polygon to Region.
type PolygonRegion struct{ P Polygon }

func (r PolygonRegion) Contains(pt Point) bool { return PointInPolygon(pt, r.P) }
func (r PolygonRegion) BBox() BBox             { return PolygonBBox(r.P) }

// MultiPolygonRegion adapts a MultiPolygon to Region.
type MultiPolygonRegion struct{ MP MultiPolygon }

func (r MultiPolygonRegion) Contains(pt Point) bool { return PointInMultiPolygon(pt, r.MP) }
func (r MultiPolygonRegion) BBox() BBox {
	var b BBox
	for i, p := range r.MP {
		if i == 0 {
			b = PolygonBBox(p)
			continue
		}
		b = b.Union(PolygonBBox(p))
	}
	return b
}

type unionRegion struct{ regions []Region }

func (u unionRegion) Contains(pt Point) bool {
	for _, r := range u.regions {
		if r.Contains(pt) {
			return true
		}
	}
	return false
}

func (u unionRegion) BBox() BBox {
	var b BBox
	for i, r := range u.regions {
		if i == 0 {
			b = r.BBox()
			continue
		}
		b = b.Union(r.BBox())
	}
	return b
}

type intersectRegion struct{ a, b Region }

func (i intersectRegion) Contains(pt Point) bool { return i.a.Contains(pt) && i.b.Contains(pt) }
func (i intersectRegion) BBox() BBox {
	ab, bb := i.a.BBox(), i.b.BBox()
	return BBox{
		MinX: math.Max(ab.MinX, bb.MinX),
		MinY: math.Max(ab.MinY, bb.MinY),
		MaxX: math.Min(ab.MaxX, bb.MaxX),
		MaxY: math.Min(ab.MaxY, bb.MaxY),
	}
}

type differenceRegion struct{ a, b Region }

func (d differenceRegion) Contains(pt Point) bool { return d.a.Contains(pt) && !d.b.Contains(pt) }
func (d differenceRegion) BBox() BBox             { return d.a.BBox() }

// Union returns a Region that is true wherever any of regions is true.
func Union(regions ...Region) Region { return unionRegion{regions: regions} }

// Intersect returns a Region that is true only where both a and b are true.
func Intersect(a, b Region) Region { return intersectRegion{a: a, b: b} }

// Difference returns a Region true where a holds and b does not.
func Difference(a, b Region) Region { return differenceRegion{a: a, b: b} }

// Area estimates the area of an arbitrary Region via adaptive quadtree
// quadrature: recursively subdivide the bounding box, and for each cell
// either resolve it immediately (all four corners plus the center agree
// on membership) or split it further, down to a maximum depth. This
// avoids full polygon-boolean clipping (no robust library for it appears
// anywhere in the retrieved corpus — see DESIGN.md) while still
// converging to within the <1% relative error the spec requires for
// district-scale comparisons.
//
// maxDepth of 18 on a typical city-scale bbox (~0.1 degrees square)
// resolves cells to sub-meter scale, which is far finer than boundary
// source data ever justifies.
func Area(r Region, maxDepth int) float64 {
	if maxDepth <= 0 {
		maxDepth = 18
	}
	b := r.BBox()
	if b.MaxX <= b.MinX || b.MaxY <= b.MinY {
		return 0
	}
	return quadArea(r, b, maxDepth)
}

func quadArea(r Region, b BBox, depth int) float64 {
	corners := [4]Point{
		{b.MinX, b.MinY}, {b.MaxX, b.MinY}, {b.MinX, b.MaxY}, {b.MaxX, b.MaxY},
	}
	center := Point{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}

	allIn, allOut := true, true
	for _, c := range corners {
		in := r.Contains(c)
		allIn = allIn && in
		allOut = allOut && !in
	}
	centerIn := r.Contains(center)
	cellArea := (b.MaxX - b.MinX) * (b.MaxY - b.MinY)

	if allIn && centerIn {
		return cellArea
	}
	if allOut && !centerIn {
		return 0
	}
	if depth <= 0 {
		// Out of budget: fall back to a fractional estimate from the
		// five sampled points rather than guessing all-or-nothing.
		count := 0
		for _, c := range corners {
			if r.Contains(c) {
				count++
			}
		}
		if centerIn {
			count++
		}
		return cellArea * float64(count) / 5
	}

	midX, midY := center.X, center.Y
	quads := [4]BBox{
		{b.MinX, b.MinY, midX, midY},
		{midX, b.MinY, b.MaxX, midY},
		{b.MinX, midY, midX, b.MaxY},
		{midX, midY, b.MaxX, b.MaxY},
	}
	var total float64
	for _, q := range quads {
		total += quadArea(r, q, depth-1)
	}
	return total
}

// OverlapArea computes area(a ∩ b), the measurement the Tessellation
// Prover's exclusivity axiom needs for every district pair.
func OverlapArea(a, b Polygon) float64 {
	return Area(Intersect(PolygonRegion{a}, PolygonRegion{b}), 18)
}

// UnionOfPolygons builds a Region representing the union of an arbitrary
// set of polygons (e.g. every district in a tessellation candidate).
func UnionOfPolygons(polys []Polygon) Region {
	regions := make([]Region, len(polys))
	for i, p := range polys {
		regions[i] = PolygonRegion{P: p}
	}
	return Union(regions...)
}
