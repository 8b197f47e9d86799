package force

import (
	"math"
	"math/rand"
	"testing"

	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/sim"
)

func newNode(t *testing.T, x, y, w, h float64) *sim.Node {
	t.Helper()
	n, err := sim.NewNode(0, w, h)
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	n.X, n.Y = x, y
	return n
}

func squarePolygon(size float64) []geometry.Point {
	return []geometry.Point{{X: 0, Y: 0}, {X: size, Y: 0}, {X: size, Y: size}, {X: 0, Y: size}}
}

// bruteForce computes the exact pairwise many-body velocity change.
func bruteForce(nodes []*sim.Node, alpha, distMin, distMax float64) ([]float64, []float64) {
	vx := make([]float64, len(nodes))
	vy := make([]float64, len(nodes))
	distMin2, distMax2 := distMin*distMin, distMax*distMax
	for i, a := range nodes {
		for j, b := range nodes {
			if i == j {
				continue
			}
			x, y := b.X-a.X, b.Y-a.Y
			l := x*x + y*y
			if l >= distMax2 || l == 0 {
				continue
			}
			if l < distMin2 {
				l = math.Sqrt(distMin2 * l)
			}
			s := -b.Radius() * alpha / l
			vx[i] += x * s
			vy[i] += y * s
		}
	}
	return vx, vy
}

func TestManyBodyTwoNodesMatchesPairwise(t *testing.T) {
	nodes := []*sim.Node{newNode(t, 10, 20, 20, 20), newNode(t, 60, 45, 10, 30)}
	f := NewManyBody()
	f.Initialize(nodes)
	f.Apply(0.5)

	wantX, wantY := bruteForce(nodes, 0.5, 1, math.Inf(1))
	for i, n := range nodes {
		if math.Abs(n.VX-wantX[i]) > 1e-12 || math.Abs(n.VY-wantY[i]) > 1e-12 {
			t.Errorf("node %d: got (%g,%g), want (%g,%g)", i, n.VX, n.VY, wantX[i], wantY[i])
		}
	}
	// Repulsion pushes the nodes apart.
	if nodes[0].VX >= 0 || nodes[1].VX <= 0 {
		t.Errorf("expected repulsion, got vx0=%f vx1=%f", nodes[0].VX, nodes[1].VX)
	}
}

func TestManyBodyExactWithSmallTheta(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	nodes := make([]*sim.Node, 60)
	for i := range nodes {
		nodes[i] = newNode(t, rng.Float64()*400, rng.Float64()*400, 5+rng.Float64()*20, 5+rng.Float64()*20)
	}
	f := NewManyBody()
	f.Theta2 = 1e-12
	f.DistanceMin = 20
	f.DistanceMax = 150
	f.Initialize(nodes)
	f.Apply(1)

	wantX, wantY := bruteForce(nodes, 1, 20, 150)
	for i, n := range nodes {
		if math.Abs(n.VX-wantX[i]) > 1e-9 || math.Abs(n.VY-wantY[i]) > 1e-9 {
			t.Errorf("node %d: got (%g,%g), want (%g,%g)", i, n.VX, n.VY, wantX[i], wantY[i])
		}
	}
}

func TestManyBodyFarClusterRepels(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	nodes := []*sim.Node{newNode(t, 0, 0, 20, 20)}
	for i := 0; i < 100; i++ {
		angle := rng.Float64() * 2 * math.Pi
		r := rng.Float64() * 50
		nodes = append(nodes, newNode(t, 500+r*math.Cos(angle), 500+r*math.Sin(angle), 20, 20))
	}
	f := NewManyBody()
	f.Initialize(nodes)
	f.Apply(1)

	lone := nodes[0]
	if lone.VX >= 0 || lone.VY >= 0 {
		t.Errorf("lone node should be pushed away from the cluster, got (%f,%f)", lone.VX, lone.VY)
	}
	for i, n := range nodes {
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) {
			t.Fatalf("node %d has NaN velocity", i)
		}
	}
}

func TestManyBodyDistanceMax(t *testing.T) {
	nodes := []*sim.Node{newNode(t, 0, 0, 10, 10), newNode(t, 500, 0, 10, 10)}
	f := NewManyBody()
	f.DistanceMax = 100
	f.Initialize(nodes)
	f.Apply(1)
	for i, n := range nodes {
		if n.VX != 0 || n.VY != 0 {
			t.Errorf("node %d should not be affected beyond distanceMax, got (%f,%f)", i, n.VX, n.VY)
		}
	}
}

func TestManyBodyCoincidentNodes(t *testing.T) {
	nodes := []*sim.Node{newNode(t, 5, 5, 10, 10), newNode(t, 5, 5, 10, 10), newNode(t, 30, 5, 10, 10)}
	f := NewManyBody()
	f.Initialize(nodes)
	f.Apply(1)
	for i, n := range nodes {
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) || math.IsInf(n.VX, 0) || math.IsInf(n.VY, 0) {
			t.Fatalf("node %d has non-finite velocity (%f,%f)", i, n.VX, n.VY)
		}
	}
	if nodes[0].VX != nodes[1].VX {
		t.Error("coincident nodes should receive identical contributions under zero jiggle")
	}

	rng := rand.New(rand.NewSource(1))
	for _, n := range nodes {
		n.VX, n.VY = 0, 0
	}
	f.Jiggle = RandomJiggle(rng)
	f.Apply(1)
	for i, n := range nodes {
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) {
			t.Fatalf("node %d has NaN velocity with random jiggle", i)
		}
	}
}

func TestManyBodyStrengthFollowsRadius(t *testing.T) {
	small := []*sim.Node{newNode(t, 0, 0, 10, 10), newNode(t, 50, 0, 10, 10)}
	large := []*sim.Node{newNode(t, 0, 0, 10, 10), newNode(t, 50, 0, 40, 40)}

	f := NewManyBody()
	f.Initialize(small)
	f.Apply(1)
	g := NewManyBody()
	g.Initialize(large)
	g.Apply(1)

	if math.Abs(large[0].VX) <= math.Abs(small[0].VX) {
		t.Errorf("a larger neighbour should repel harder: %f vs %f", large[0].VX, small[0].VX)
	}
}

func TestPolygonCollideHardCorrection(t *testing.T) {
	poly := squarePolygon(100)
	n := newNode(t, 50, 3, 6, 8) // radius 5, 3 from the top edge
	n.VX, n.VY = 4, -7

	f := NewPolygonCollide(poly, geometry.Pt(50, 50))
	f.Initialize([]*sim.Node{n})
	f.Apply(1)

	if math.Abs(n.VX) > 1e-12 || math.Abs(n.VY-1) > 1e-12 {
		t.Errorf("expected unit push (0,1), got (%f,%f)", n.VX, n.VY)
	}
	if math.Abs(n.Orientation) > 1e-12 {
		t.Errorf("expected orientation 0 along the top edge, got %f", n.Orientation)
	}
}

func TestPolygonCollideSoftNudge(t *testing.T) {
	poly := squarePolygon(100)
	n := newNode(t, 90, 50, 4, 4) // 10 from the right edge, radius ~2.8

	f := NewPolygonCollide(poly, geometry.Pt(50, 50))
	f.Initialize([]*sim.Node{n})
	f.Apply(1)

	if n.VX >= 0 {
		t.Errorf("node should be nudged left, got vx=%f", n.VX)
	}
	if math.Abs(n.VY) > 1e-12 {
		t.Errorf("no vertical nudge expected, got vy=%f", n.VY)
	}
	if math.Abs(n.Orientation-math.Pi/2) > 1e-12 {
		t.Errorf("expected orientation pi/2 along the right edge, got %f", n.Orientation)
	}
}

func TestPolygonCollideSnapsOutsideNode(t *testing.T) {
	poly := squarePolygon(100)
	n := newNode(t, 150, 50, 4, 4)
	n.VX = 30

	f := NewPolygonCollide(poly, geometry.Pt(50, 50))
	f.Initialize([]*sim.Node{n})
	f.Apply(1)

	if math.Abs(n.X-100) > 1e-9 || math.Abs(n.Y-50) > 1e-9 {
		t.Errorf("expected snap to (100,50), got (%f,%f)", n.X, n.Y)
	}
	if n.VX != 30 || n.VY != 0 {
		t.Errorf("snapping should leave velocity untouched, got (%f,%f)", n.VX, n.VY)
	}
}

func TestPolygonCollideZeroDistance(t *testing.T) {
	poly := squarePolygon(100)
	n := newNode(t, 0, 0, 4, 4) // on a vertex

	f := NewPolygonCollide(poly, geometry.Pt(50, 50))
	f.Initialize([]*sim.Node{n})
	f.Apply(1)

	for _, v := range []float64{n.X, n.Y, n.VX, n.VY, n.Orientation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite state after boundary force: %+v", n)
		}
	}
}

// Nodes started at rest well inside a convex polygon and driven by the
// boundary force alone never end a tick outside it.
func TestPolygonCollideKeepsNodesInsideConvexPolygon(t *testing.T) {
	tests := []struct {
		name string
		poly []geometry.Point
	}{
		{name: "pentagon", poly: []geometry.Point{{X: 20, Y: 0}, {X: 120, Y: 10}, {X: 140, Y: 90}, {X: 60, Y: 130}, {X: 0, Y: 70}}},
		{name: "square", poly: squarePolygon(100)},
		{name: "triangle", poly: []geometry.Point{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 100, Y: 120}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			center := geometry.PolygonCentroid(tt.poly)
			rng := rand.New(rand.NewSource(5))

			nodes := make([]*sim.Node, 8)
			for i := range nodes {
				// A point on a random edge pulled toward the center.
				a, b := geometry.Edge(tt.poly, rng.Intn(len(tt.poly)))
				u, k := rng.Float64(), 0.2+rng.Float64()*0.5
				ex, ey := a.X+u*(b.X-a.X), a.Y+u*(b.Y-a.Y)
				nodes[i] = newNode(t, center.X+k*(ex-center.X), center.Y+k*(ey-center.Y), 6, 6)
			}

			s, err := sim.New(nodes)
			if err != nil {
				t.Fatalf("sim.New: %v", err)
			}
			s.SetForce("polygonCollide", NewPolygonCollide(tt.poly, center))

			for tick := 0; tick < 300; tick++ {
				s.Tick()
				for i, n := range nodes {
					if d := geometry.DistanceToBoundary(tt.poly, geometry.Pt(n.X, n.Y)); d < -1e-6 {
						t.Fatalf("tick %d: node %d outside polygon by %f at (%f,%f)", tick, i, -d, n.X, n.Y)
					}
				}
			}
		})
	}
}

func TestCenter(t *testing.T) {
	nodes := []*sim.Node{newNode(t, 0, 0, 1, 1), newNode(t, 10, 0, 1, 1), newNode(t, 5, 30, 1, 1)}
	f := NewCenter(100, 200)
	f.Initialize(nodes)
	f.Apply(1)

	var mx, my float64
	for _, n := range nodes {
		mx += n.X
		my += n.Y
	}
	mx /= 3
	my /= 3
	if math.Abs(mx-100) > 1e-9 || math.Abs(my-200) > 1e-9 {
		t.Errorf("expected mean (100,200), got (%f,%f)", mx, my)
	}
	if nodes[1].X-nodes[0].X != 10 {
		t.Error("center force should translate rigidly")
	}
}

func TestCollidePushesApart(t *testing.T) {
	a := newNode(t, 0, 0, 10, 10)
	b := newNode(t, 4, 0, 10, 10)
	f := NewCollide(nil)
	f.Initialize([]*sim.Node{a, b})
	f.Apply(1)

	if a.VX >= 0 || b.VX <= 0 {
		t.Errorf("expected separation, got a.vx=%f b.vx=%f", a.VX, b.VX)
	}
	if math.Abs(a.VX+b.VX) > 1e-12 {
		t.Errorf("equal radii should share the push equally: %f vs %f", a.VX, b.VX)
	}
	if a.VY != 0 || b.VY != 0 {
		t.Error("no vertical push expected")
	}
}

func TestCollideIgnoresDistantNodes(t *testing.T) {
	a := newNode(t, 0, 0, 10, 10)
	b := newNode(t, 100, 0, 10, 10)
	f := NewCollide(func(n *sim.Node) float64 { return n.Radius() + 10 })
	f.Iterations = 2
	f.Initialize([]*sim.Node{a, b})
	f.Apply(1)
	if a.VX != 0 || b.VX != 0 {
		t.Errorf("distant nodes should not collide, got %f %f", a.VX, b.VX)
	}
}

func TestCollideCoincident(t *testing.T) {
	a := newNode(t, 5, 5, 10, 10)
	b := newNode(t, 5, 5, 10, 10)
	f := NewCollide(nil)
	f.Initialize([]*sim.Node{a, b})
	f.Apply(1)
	if math.IsNaN(a.VX) || math.IsNaN(b.VX) {
		t.Fatal("coincident collision produced NaN")
	}
}

// Five buildings in a 300x300 square driven for 100 ticks without a center
// force stay within the square grown by their radius.
func TestBuildingsStayInsideSquare(t *testing.T) {
	poly := squarePolygon(300)
	center := geometry.PolygonCentroid(poly)
	bounds := geometry.PolygonBounds(poly)

	nodes := make([]*sim.Node, 5)
	for i := range nodes {
		dx, dy := sim.Phyllotaxis(i)
		nodes[i] = newNode(t, center.X+dx, center.Y+dy, 20, 20)
	}

	s, err := sim.New(nodes)
	if err != nil {
		t.Fatalf("sim.New: %v", err)
	}
	collide := NewCollide(func(n *sim.Node) float64 { return n.Radius() + 10 })
	collide.Iterations = 2
	many := NewManyBody()
	many.DistanceMin = 20
	many.DistanceMax = math.Max(bounds.Width, bounds.Height) / 2
	many.Iterations = 4

	s.SetForce("collide", collide)
	s.SetForce("manyBody", many)
	s.SetForce("polygonCollide", NewPolygonCollide(poly, center))
	s.Start()

	for tick := 0; tick < 100; tick++ {
		s.Step()
		for i, n := range nodes {
			if !geometry.Pt(n.X, n.Y).IsFinite() {
				t.Fatalf("tick %d: node %d has non-finite position", tick, i)
			}
			if !bounds.Expand(n.Radius()).Contains(geometry.Pt(n.X, n.Y)) {
				t.Fatalf("tick %d: node %d at (%f,%f) escaped the square", tick, i, n.X, n.Y)
			}
		}
	}
}

func BenchmarkManyBody(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	nodes := make([]*sim.Node, 500)
	for i := range nodes {
		n, _ := sim.NewNode(0, 20, 20)
		n.X, n.Y = rng.Float64()*1000, rng.Float64()*1000
		nodes[i] = n
	}
	f := NewManyBody()
	f.Initialize(nodes)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Apply(1)
	}
}
