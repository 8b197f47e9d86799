package geometry

import "math"

// Point is a position on the canvas plane. Y grows downwards, as on a canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is a shorthand constructor for Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Scale returns p * s.
func (p Point) Scale(s float64) Point {
	return Point{p.X * s, p.Y * s}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Dist2 returns the squared distance from p to q.
func (p Point) Dist2(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

// Distance returns the Euclidean distance from p to q.
func (p Point) Distance(q Point) float64 {
	return math.Sqrt(p.Dist2(q))
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// PointToSegment returns the point on segment [a,b] nearest to p.
// A zero-length segment yields a.
func PointToSegment(p, a, b Point) Point {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return Point{a.X + t*ab.X, a.Y + t*ab.Y}
}

// SegmentDistance returns the distance between p and the nearest point
// previously found on a segment.
func SegmentDistance(p, nearest Point) float64 {
	return p.Distance(nearest)
}

// SegmentIntersection returns the point where segments [p0,p1] and [p2,p3]
// cross. Parallel or collinear segments have no single crossing point and
// report false, as does any non-finite input.
func SegmentIntersection(p0, p1, p2, p3 Point) (Point, bool) {
	s1x, s1y := p1.X-p0.X, p1.Y-p0.Y
	s2x, s2y := p3.X-p2.X, p3.Y-p2.Y

	denom := -s2x*s1y + s1x*s2y
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return Point{}, false
	}

	s := (-s1y*(p0.X-p2.X) + s1x*(p0.Y-p2.Y)) / denom
	t := (s2x*(p0.Y-p2.Y) - s2y*(p0.X-p2.X)) / denom
	if s < 0 || s > 1 || t < 0 || t > 1 {
		return Point{}, false
	}
	return Point{p0.X + t*s1x, p0.Y + t*s1y}, true
}
