package city

import (
	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/sim"
	"github.com/onnwee/metro-map/backend/internal/tessellation"
)

// Polygon is one Voronoi cell of the city, a district.
type Polygon struct {
	Index     int
	Site      geometry.Point
	Vertices  []geometry.Point
	Center    geometry.Point
	Area      float64
	Bounds    geometry.Bounds
	Neighbors []int

	Type     DistrictType
	Children []*sim.Node

	// generation changes whenever the children are replaced.
	generation uint64
	ticks      uint64
}

func newPolygon(c tessellation.Cell) *Polygon {
	return &Polygon{
		Index:     c.Index,
		Site:      c.Site,
		Vertices:  c.Vertices,
		Center:    geometry.PolygonCentroid(c.Vertices),
		Area:      geometry.PolygonArea(c.Vertices),
		Bounds:    geometry.PolygonBounds(c.Vertices),
		Neighbors: c.Neighbors,
	}
}

// Contains reports whether p lies inside the polygon.
func (p *Polygon) Contains(pt geometry.Point) bool {
	return geometry.PolygonContains(p.Vertices, pt)
}

// clampInside returns the point where the segment from the center to pt
// leaves the polygon, or pt itself when it stays inside.
func (p *Polygon) clampInside(pt geometry.Point) geometry.Point {
	for i := range p.Vertices {
		a, b := geometry.Edge(p.Vertices, i)
		if inter, ok := geometry.SegmentIntersection(a, b, p.Center, pt); ok {
			return inter
		}
	}
	return pt
}
