package force

import (
	"math"

	"github.com/onnwee/metro-map/backend/internal/quadtree"
	"github.com/onnwee/metro-map/backend/internal/sim"
)

// DefaultTheta2 is the squared Barnes-Hut opening criterion (theta = 0.9).
const DefaultTheta2 = 0.81

// ManyBody is a Barnes-Hut approximated repulsion between all nodes of a
// simulation. Each node repels with strength -Radius.
//
// Iterations is carried for configuration parity and does not change the
// number of passes: Apply runs exactly one pass per tick.
type ManyBody struct {
	DistanceMin float64
	DistanceMax float64
	Theta2      float64
	Iterations  int
	Jiggle      JigglePolicy

	nodes     []*sim.Node
	strengths []float64
}

// NewManyBody returns a many-body force with distanceMin 1, unbounded
// distanceMax and theta 0.9.
func NewManyBody() *ManyBody {
	return &ManyBody{
		DistanceMin: 1,
		DistanceMax: math.Inf(1),
		Theta2:      DefaultTheta2,
		Iterations:  1,
		Jiggle:      ZeroJiggle,
	}
}

// Initialize caches per-node strengths.
func (f *ManyBody) Initialize(nodes []*sim.Node) {
	f.nodes = nodes
	f.strengths = make([]float64, len(nodes))
	for i, n := range nodes {
		f.strengths[i] = -n.Radius()
	}
}

// Apply adds the approximated repulsion to every node velocity.
func (f *ManyBody) Apply(alpha float64) {
	if len(f.nodes) == 0 {
		return
	}

	tree := quadtree.New(len(f.nodes), func(i int) (float64, float64) {
		return f.nodes[i].X, f.nodes[i].Y
	})
	tree.VisitAfter(f.accumulate)

	distMin2 := f.DistanceMin * f.DistanceMin
	distMax2 := f.DistanceMax * f.DistanceMax
	theta2 := f.Theta2
	if theta2 <= 0 {
		theta2 = DefaultTheta2
	}

	for i, node := range f.nodes {
		tree.Visit(func(q *quadtree.Quad, x0, _, x1, _ float64) bool {
			return f.apply(i, node, q, x1-x0, alpha, theta2, distMin2, distMax2)
		})
	}
}

// accumulate computes the strength-weighted center of every quad.
func (f *ManyBody) accumulate(q *quadtree.Quad, _, _, _, _ float64) {
	if q.IsLeaf() {
		q.X, q.Y = q.Data.X, q.Data.Y
		strength := 0.0
		for p := q.Data; p != nil; p = p.Next {
			strength += f.strengths[p.Index]
		}
		q.Value = strength
		return
	}

	var strength, weight, x, y float64
	for _, c := range q.Children {
		if c == nil || c.Value == 0 {
			continue
		}
		w := math.Abs(c.Value)
		strength += c.Value
		weight += w
		x += w * c.X
		y += w * c.Y
	}
	q.Value = strength
	if weight > 0 {
		q.X, q.Y = x/weight, y/weight
	}
}

// apply reports true when the quad needs no further descent.
func (f *ManyBody) apply(i int, node *sim.Node, q *quadtree.Quad, w, alpha, theta2, distMin2, distMax2 float64) bool {
	if q.Value == 0 {
		return true
	}

	x, y := q.X-node.X, q.Y-node.Y
	l := x*x + y*y

	// Far enough away: treat the quad as a single body.
	if w*w/theta2 < l {
		if l < distMax2 {
			x, y, l = f.separate(x, y, l, distMin2)
			if l == 0 {
				return true
			}
			node.VX += x * q.Value * alpha / l
			node.VY += y * q.Value * alpha / l
		}
		return true
	}

	if !q.IsLeaf() || l >= distMax2 {
		return false
	}

	if q.Data.Index != i || q.Data.Next != nil {
		x, y, l = f.separate(x, y, l, distMin2)
	}
	if l == 0 {
		return true
	}

	for p := q.Data; p != nil; p = p.Next {
		if p.Index == i {
			continue
		}
		s := f.strengths[p.Index] * alpha / l
		node.VX += x * s
		node.VY += y * s
	}
	return true
}

// separate jiggles zero differences and clamps l to distMin.
func (f *ManyBody) separate(x, y, l, distMin2 float64) (float64, float64, float64) {
	if x == 0 {
		x = f.Jiggle.next()
		l += x * x
	}
	if y == 0 {
		y = f.Jiggle.next()
		l += y * y
	}
	if l < distMin2 {
		l = math.Sqrt(distMin2 * l)
	}
	return x, y, l
}
