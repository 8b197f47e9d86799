package quadtree

import "math"

// Point is a data point stored at a leaf. Coincident points are chained
// through Next.
type Point struct {
	X, Y  float64
	Index int
	Next  *Point
}

// Quad is a quadtree node. A leaf carries a non-nil Data chain; an internal
// node carries up to four children indexed as NW=0, NE=1, SW=2, SE=3.
//
// X, Y, Value and R are scratch aggregates filled in by forces during
// VisitAfter (center of strength, total strength, max radius).
type Quad struct {
	Children [4]*Quad
	Data     *Point

	X, Y  float64
	Value float64
	R     float64
}

// IsLeaf reports whether q holds data points rather than children.
func (q *Quad) IsLeaf() bool {
	return q.Data != nil
}

// Tree is a 2D point index whose extent grows by doubling to cover new
// points, the way a d3 quadtree does.
type Tree struct {
	x0, y0, x1, y1 float64
	extentSet      bool
	root           *Quad
	size           int
}

// New bulk-builds a tree from n points. The extent is computed from all
// points before insertion so that the root is sized once.
func New(n int, at func(i int) (x, y float64)) *Tree {
	t := &Tree{}
	xs := make([]float64, n)
	ys := make([]float64, n)
	x0, y0 := math.Inf(1), math.Inf(1)
	x1, y1 := math.Inf(-1), math.Inf(-1)

	for i := 0; i < n; i++ {
		x, y := at(i)
		xs[i], ys[i] = x, y
		if !finite(x, y) {
			continue
		}
		x0 = math.Min(x0, x)
		x1 = math.Max(x1, x)
		y0 = math.Min(y0, y)
		y1 = math.Max(y1, y)
	}

	// No valid points: leave the tree empty.
	if x0 > x1 || y0 > y1 {
		return t
	}

	t.cover(x0, y0)
	t.cover(x1, y1)
	for i := 0; i < n; i++ {
		t.add(xs[i], ys[i], i)
	}
	return t
}

func finite(x, y float64) bool {
	return !math.IsNaN(x) && !math.IsNaN(y) && !math.IsInf(x, 0) && !math.IsInf(y, 0)
}

// Root returns the root quad, nil for an empty tree.
func (t *Tree) Root() *Quad {
	return t.root
}

// Size returns the number of points stored.
func (t *Tree) Size() int {
	return t.size
}

// Extent returns the current bounds [x0,x1) x [y0,y1).
func (t *Tree) Extent() (x0, y0, x1, y1 float64) {
	return t.x0, t.y0, t.x1, t.y1
}

// Add inserts a point carrying index. NaN or infinite coordinates are
// ignored.
func (t *Tree) Add(x, y float64, index int) {
	if !finite(x, y) {
		return
	}
	t.cover(x, y)
	t.add(x, y, index)
}

func (t *Tree) add(x, y float64, index int) {
	if !finite(x, y) {
		return
	}
	leaf := &Point{X: x, Y: y, Index: index}
	t.size++

	node := t.root
	if node == nil {
		t.root = &Quad{Data: leaf}
		return
	}

	x0, y0, x1, y1 := t.x0, t.y0, t.x1, t.y1
	var parent *Quad
	var i int

	// Descend to the leaf quadrant that should contain the point.
	for !node.IsLeaf() {
		xm, ym := (x0+x1)/2, (y0+y1)/2
		right, bottom := x >= xm, y >= ym
		if right {
			x0 = xm
		} else {
			x1 = xm
		}
		if bottom {
			y0 = ym
		} else {
			y1 = ym
		}
		parent = node
		i = quadrant(right, bottom)
		node = node.Children[i]
		if node == nil {
			parent.Children[i] = &Quad{Data: leaf}
			return
		}
	}

	xp, yp := node.Data.X, node.Data.Y
	if x == xp && y == yp {
		leaf.Next = node.Data
		node.Data = leaf
		return
	}

	// Split until the new point and the existing leaf separate.
	for {
		next := &Quad{}
		if parent != nil {
			parent.Children[i] = next
		} else {
			t.root = next
		}
		parent = next

		xm, ym := (x0+x1)/2, (y0+y1)/2
		right, bottom := x >= xm, y >= ym
		if right {
			x0 = xm
		} else {
			x1 = xm
		}
		if bottom {
			y0 = ym
		} else {
			y1 = ym
		}
		i = quadrant(right, bottom)
		j := quadrant(xp >= xm, yp >= ym)
		if i != j {
			parent.Children[i] = &Quad{Data: leaf}
			parent.Children[j] = node
			return
		}
	}
}

// cover expands the extent by doubling until (x, y) lies inside it.
func (t *Tree) cover(x, y float64) {
	if !finite(x, y) {
		return
	}

	if !t.extentSet {
		t.x0 = math.Floor(x)
		t.x1 = t.x0 + 1
		t.y0 = math.Floor(y)
		t.y1 = t.y0 + 1
		t.extentSet = true
		return
	}

	x0, y0, x1, y1 := t.x0, t.y0, t.x1, t.y1
	if x0 <= x && x < x1 && y0 <= y && y < y1 {
		return
	}

	z := x1 - x0
	if z == 0 {
		z = 1
	}
	node := t.root
	for x0 > x || x >= x1 || y0 > y || y >= y1 {
		i := quadrant(x < x0, y < y0)
		parent := &Quad{}
		parent.Children[i] = node
		node = parent
		z *= 2
		switch i {
		case 0:
			x1, y1 = x0+z, y0+z
		case 1:
			x0, y1 = x1-z, y0+z
		case 2:
			x1, y0 = x0+z, y1-z
		case 3:
			x0, y0 = x1-z, y1-z
		}
	}

	// A leaf root stays in place; only an internal root gets wrapped.
	if t.root != nil && !t.root.IsLeaf() {
		t.root = node
	}
	t.x0, t.y0, t.x1, t.y1 = x0, y0, x1, y1
}

func quadrant(right, bottom bool) int {
	i := 0
	if right {
		i |= 1
	}
	if bottom {
		i |= 2
	}
	return i
}

type visitFrame struct {
	node           *Quad
	x0, y0, x1, y1 float64
}

// Visit walks the tree in pre-order. When fn returns true the children of
// that quad are skipped.
func (t *Tree) Visit(fn func(q *Quad, x0, y0, x1, y1 float64) bool) {
	if t.root == nil {
		return
	}
	stack := []visitFrame{{t.root, t.x0, t.y0, t.x1, t.y1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if fn(f.node, f.x0, f.y0, f.x1, f.y1) || f.node.IsLeaf() {
			continue
		}
		xm, ym := (f.x0+f.x1)/2, (f.y0+f.y1)/2
		c := f.node.Children
		// Pushed in reverse so NW is popped first.
		if c[3] != nil {
			stack = append(stack, visitFrame{c[3], xm, ym, f.x1, f.y1})
		}
		if c[2] != nil {
			stack = append(stack, visitFrame{c[2], f.x0, ym, xm, f.y1})
		}
		if c[1] != nil {
			stack = append(stack, visitFrame{c[1], xm, f.y0, f.x1, ym})
		}
		if c[0] != nil {
			stack = append(stack, visitFrame{c[0], f.x0, f.y0, xm, ym})
		}
	}
}

// VisitAfter walks the tree in post-order: every child is visited before
// its parent.
func (t *Tree) VisitAfter(fn func(q *Quad, x0, y0, x1, y1 float64)) {
	if t.root == nil {
		return
	}
	stack := []visitFrame{{t.root, t.x0, t.y0, t.x1, t.y1}}
	var order []visitFrame
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, f)
		if f.node.IsLeaf() {
			continue
		}
		xm, ym := (f.x0+f.x1)/2, (f.y0+f.y1)/2
		c := f.node.Children
		if c[0] != nil {
			stack = append(stack, visitFrame{c[0], f.x0, f.y0, xm, ym})
		}
		if c[1] != nil {
			stack = append(stack, visitFrame{c[1], xm, f.y0, f.x1, ym})
		}
		if c[2] != nil {
			stack = append(stack, visitFrame{c[2], f.x0, ym, xm, f.y1})
		}
		if c[3] != nil {
			stack = append(stack, visitFrame{c[3], xm, ym, f.x1, f.y1})
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		f := order[i]
		fn(f.node, f.x0, f.y0, f.x1, f.y1)
	}
}

// Find returns the index of the point nearest to (x, y) within radius.
// A radius <= 0 or +Inf searches without limit.
func (t *Tree) Find(x, y, radius float64) (int, bool) {
	if t.root == nil {
		return -1, false
	}

	x0, y0, x3, y3 := t.x0, t.y0, t.x1, t.y1
	r2 := math.Inf(1)
	if radius > 0 && !math.IsInf(radius, 1) {
		x0, y0 = x-radius, y-radius
		x3, y3 = x+radius, y+radius
		r2 = radius * radius
	}

	found := -1
	stack := []visitFrame{{t.root, t.x0, t.y0, t.x1, t.y1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node == nil || f.x0 > x3 || f.y0 > y3 || f.x1 < x0 || f.y1 < y0 {
			continue
		}

		if !f.node.IsLeaf() {
			xm, ym := (f.x0+f.x1)/2, (f.y0+f.y1)/2
			c := f.node.Children
			stack = append(stack,
				visitFrame{c[3], xm, ym, f.x1, f.y1},
				visitFrame{c[2], f.x0, ym, xm, f.y1},
				visitFrame{c[1], xm, f.y0, f.x1, ym},
				visitFrame{c[0], f.x0, f.y0, xm, ym},
			)
			// Visit the quadrant containing the query point first.
			if i := quadrant(x >= xm, y >= ym); i != 0 {
				last := len(stack) - 1
				stack[last], stack[last-i] = stack[last-i], stack[last]
			}
			continue
		}

		dx, dy := x-f.node.Data.X, y-f.node.Data.Y
		if d2 := dx*dx + dy*dy; d2 < r2 {
			r2 = d2
			d := math.Sqrt(d2)
			x0, y0 = x-d, y-d
			x3, y3 = x+d, y+d
			found = f.node.Data.Index
		}
	}
	return found, found >= 0
}

// Points returns every stored point, coincident chains included.
func (t *Tree) Points() []Point {
	out := make([]Point, 0, t.size)
	t.Visit(func(q *Quad, _, _, _, _ float64) bool {
		for p := q.Data; p != nil; p = p.Next {
			out = append(out, Point{X: p.X, Y: p.Y, Index: p.Index})
		}
		return false
	})
	return out
}
