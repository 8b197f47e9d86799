package geometry

import "math"

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	MaxX   float64 `json:"max_x"`
	MaxY   float64 `json:"max_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Expand returns the box grown by d on every side.
func (b Bounds) Expand(d float64) Bounds {
	return Bounds{
		MinX:   b.MinX - d,
		MinY:   b.MinY - d,
		MaxX:   b.MaxX + d,
		MaxY:   b.MaxY + d,
		Width:  b.Width + 2*d,
		Height: b.Height + 2*d,
	}
}

// Contains reports whether p lies inside the box or on its border.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// PolygonBounds returns the bounding box of the vertices.
// An empty vertex list yields the zero box.
func PolygonBounds(vertices []Point) Bounds {
	if len(vertices) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: vertices[0].X, MaxX: vertices[0].X, MinY: vertices[0].Y, MaxY: vertices[0].Y}
	for _, v := range vertices[1:] {
		b.MinX = math.Min(b.MinX, v.X)
		b.MaxX = math.Max(b.MaxX, v.X)
		b.MinY = math.Min(b.MinY, v.Y)
		b.MaxY = math.Max(b.MaxY, v.Y)
	}
	b.Width = b.MaxX - b.MinX
	b.Height = b.MaxY - b.MinY
	return b
}

// PolygonContains reports whether p lies inside the polygon using the
// even-odd ray crossing rule. The polygon is implicitly closed.
func PolygonContains(vertices []Point, p Point) bool {
	n := len(vertices)
	if n < 3 {
		return false
	}
	inside := false
	prev := vertices[n-1]
	for _, cur := range vertices {
		if (cur.Y > p.Y) != (prev.Y > p.Y) &&
			p.X < (prev.X-cur.X)*(p.Y-cur.Y)/(prev.Y-cur.Y)+cur.X {
			inside = !inside
		}
		prev = cur
	}
	return inside
}

// SignedArea returns the shoelace area of the polygon. The sign follows
// the winding order in a y-up frame; on a canvas it is inverted.
func SignedArea(vertices []Point) float64 {
	n := len(vertices)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += vertices[i].X*vertices[j].Y - vertices[j].X*vertices[i].Y
	}
	return area / 2
}

// PolygonArea returns the unsigned area of the polygon.
func PolygonArea(vertices []Point) float64 {
	return math.Abs(SignedArea(vertices))
}

// IsCounterClockwise reports whether the vertices wind counterclockwise
// in a y-up frame.
func IsCounterClockwise(vertices []Point) bool {
	return SignedArea(vertices) > 0
}

// PolygonCentroid returns the area centroid. Degenerate polygons fall back
// to the vertex mean.
func PolygonCentroid(vertices []Point) Point {
	n := len(vertices)
	if n == 0 {
		return Point{}
	}
	a := SignedArea(vertices)
	if n < 3 || math.Abs(a) < 1e-12 {
		return VertexMean(vertices)
	}
	cx, cy := 0.0, 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := vertices[i].X*vertices[j].Y - vertices[j].X*vertices[i].Y
		cx += (vertices[i].X + vertices[j].X) * cross
		cy += (vertices[i].Y + vertices[j].Y) * cross
	}
	return Point{cx / (6 * a), cy / (6 * a)}
}

// VertexMean returns the arithmetic mean of the vertices.
func VertexMean(vertices []Point) Point {
	if len(vertices) == 0 {
		return Point{}
	}
	sum := Point{}
	for _, v := range vertices {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(vertices)))
}

// Edge returns the i-th polygon edge, wrapping to vertex 0 after the last.
func Edge(vertices []Point, i int) (Point, Point) {
	n := len(vertices)
	return vertices[i%n], vertices[(i+1)%n]
}

// DistanceToBoundary returns the signed distance from p to the nearest
// polygon edge: positive inside, negative outside.
func DistanceToBoundary(vertices []Point, p Point) float64 {
	if len(vertices) < 2 {
		return 0
	}
	best := math.Inf(1)
	for i := range vertices {
		a, b := Edge(vertices, i)
		if d := SegmentDistance(p, PointToSegment(p, a, b)); d < best {
			best = d
		}
	}
	if !PolygonContains(vertices, p) {
		return -best
	}
	return best
}
