package force

import (
	"math"

	"github.com/onnwee/metro-map/backend/internal/quadtree"
	"github.com/onnwee/metro-map/backend/internal/sim"
)

// RadiusFunc returns the collision radius of a node.
type RadiusFunc func(n *sim.Node) float64

// Collide treats nodes as circles and pushes overlapping pairs apart,
// using predicted positions (x + vx).
type Collide struct {
	Radius     RadiusFunc
	Strength   float64
	Iterations int
	Jiggle     JigglePolicy

	nodes []*sim.Node
	radii []float64
}

// NewCollide returns a collision force; a nil radius uses the node radius.
func NewCollide(radius RadiusFunc) *Collide {
	if radius == nil {
		radius = func(n *sim.Node) float64 { return n.Radius() }
	}
	return &Collide{
		Radius:     radius,
		Strength:   1,
		Iterations: 1,
		Jiggle:     ZeroJiggle,
	}
}

func (f *Collide) Initialize(nodes []*sim.Node) {
	f.nodes = nodes
	f.radii = make([]float64, len(nodes))
	for i, n := range nodes {
		f.radii[i] = f.Radius(n)
	}
}

func (f *Collide) Apply(_ float64) {
	if len(f.nodes) == 0 {
		return
	}
	for k := 0; k < max(f.Iterations, 1); k++ {
		tree := quadtree.New(len(f.nodes), func(i int) (float64, float64) {
			n := f.nodes[i]
			return n.X + n.VX, n.Y + n.VY
		})
		tree.VisitAfter(f.prepare)

		for i, node := range f.nodes {
			ri := f.radii[i]
			xi, yi := node.X+node.VX, node.Y+node.VY
			tree.Visit(func(q *quadtree.Quad, x0, y0, x1, y1 float64) bool {
				if !q.IsLeaf() {
					r := ri + q.R
					return x0 > xi+r || x1 < xi-r || y0 > yi+r || y1 < yi-r
				}
				for p := q.Data; p != nil; p = p.Next {
					if p.Index > i {
						f.resolve(node, f.nodes[p.Index], ri, f.radii[p.Index], xi, yi)
					}
				}
				return true
			})
		}
	}
}

// prepare stores the largest radius found under each quad.
func (f *Collide) prepare(q *quadtree.Quad, _, _, _, _ float64) {
	q.R = 0
	if q.IsLeaf() {
		for p := q.Data; p != nil; p = p.Next {
			q.R = math.Max(q.R, f.radii[p.Index])
		}
		return
	}
	for _, c := range q.Children {
		if c != nil && c.R > q.R {
			q.R = c.R
		}
	}
}

func (f *Collide) resolve(node, other *sim.Node, ri, rj, xi, yi float64) {
	r := ri + rj
	x := xi - other.X - other.VX
	y := yi - other.Y - other.VY
	l := x*x + y*y
	if l >= r*r {
		return
	}
	if x == 0 {
		x = f.Jiggle.next()
		l += x * x
	}
	if y == 0 {
		y = f.Jiggle.next()
		l += y * y
	}
	if l == 0 {
		return
	}

	l = math.Sqrt(l)
	l = (r - l) / l * f.Strength
	x *= l
	y *= l

	rj2 := rj * rj
	share := rj2 / (ri*ri + rj2)
	node.VX += x * share
	node.VY += y * share
	other.VX -= x * (1 - share)
	other.VY -= y * (1 - share)
}
