package force

import (
	"math"

	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/sim"
)

// DefaultSoftDistance is the edge distance under which nodes are nudged
// away from a polygon edge.
const DefaultSoftDistance = 20

// PolygonCollide keeps nodes inside a polygon. Nodes close to an edge are
// nudged inwards, nodes within their radius of an edge have their velocity
// replaced by a unit push away from it, and nodes found outside are snapped
// back onto the boundary with their velocity left as is. It also orients every node along its nearest edge.
type PolygonCollide struct {
	Vertices     []geometry.Point
	Center       geometry.Point
	Iterations   int
	SoftDistance float64

	nodes []*sim.Node
}

// NewPolygonCollide returns a boundary force for the polygon with the given
// vertices and center.
func NewPolygonCollide(vertices []geometry.Point, center geometry.Point) *PolygonCollide {
	return &PolygonCollide{
		Vertices:     vertices,
		Center:       center,
		Iterations:   1,
		SoftDistance: DefaultSoftDistance,
	}
}

func (f *PolygonCollide) Initialize(nodes []*sim.Node) {
	f.nodes = nodes
}

func (f *PolygonCollide) Apply(_ float64) {
	if len(f.Vertices) < 2 {
		return
	}
	for it := 0; it < max(f.Iterations, 1); it++ {
		for _, node := range f.nodes {
			f.constrain(node)
		}
	}
}

func (f *PolygonCollide) constrain(node *sim.Node) {
	p := geometry.Pt(node.X, node.Y)
	radius := node.Radius()

	minDist := math.Inf(1)
	nearestIdx := 0
	var nearest geometry.Point
	snapped := false

	for j := range f.Vertices {
		a, b := geometry.Edge(f.Vertices, j)
		q := geometry.PointToSegment(p, a, b)
		d := geometry.SegmentDistance(p, q)

		if d < minDist {
			minDist, nearestIdx, nearest = d, j, q
		}

		if d < f.SoftDistance && d > 0 {
			node.VX += (p.X - q.X) / d
			node.VY += (p.Y - q.Y) / d
		}

		// The segment from the center to the node crossing an edge means the
		// node has left the polygon.
		if inter, ok := geometry.SegmentIntersection(a, b, f.Center, p); ok {
			node.X, node.Y = inter.X, inter.Y
			snapped = true
			break
		}
	}

	// A snapped node keeps its velocity; only its position is corrected.
	if !snapped && minDist <= radius {
		node.VX, node.VY = 0, 0
		if minDist > 0 {
			node.VX = (p.X - nearest.X) / minDist
			node.VY = (p.Y - nearest.Y) / minDist
		}
	}

	a, b := geometry.Edge(f.Vertices, nearestIdx)
	node.Orientation = math.Atan2(b.Y-a.Y, b.X-a.X)
}
