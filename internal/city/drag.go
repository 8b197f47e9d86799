package city

import (
	"errors"
	"fmt"

	"github.com/onnwee/metro-map/backend/internal/force"
	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/sim"
)

var (
	ErrNoSubject   = errors.New("city: no building under the pointer")
	ErrNotDragging = errors.New("city: no drag in progress")
)

// dragState is the single drag in progress. owner identifies who started
// it; the HTTP API drags with an empty owner.
type dragState struct {
	owner   string
	polygon int
	node    *sim.Node
}

// DragResult describes the dragged building after a drag event.
type DragResult struct {
	Polygon int      `json:"polygon"`
	Node    NodeView `json:"node"`
}

// DragStart picks the building nearest to the pointer inside the polygon
// that contains it, pins it and heats its simulation up.
func (c *City) DragStart(x, y float64) (DragResult, error) {
	return c.DragStartAs("", x, y)
}

// DragMove moves the pinned building toward the pointer, clamped to its
// polygon.
func (c *City) DragMove(x, y float64) (DragResult, error) {
	return c.DragMoveAs("", x, y)
}

// DragEnd releases the dragged building and lets its simulation cool down.
// With the simulate toggle off the simulation stops right away.
func (c *City) DragEnd() (DragResult, error) {
	return c.DragEndAs("")
}

// DragStartAs starts a drag held by owner. A drag already in progress is
// released first, whoever holds it.
func (c *City) DragStartAs(owner string, x, y float64) (DragResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pt := geometry.Pt(x, y)
	if !pt.IsFinite() {
		return DragResult{}, fmt.Errorf("%w: non-finite pointer", ErrNoSubject)
	}
	index := -1
	for i, p := range c.polygons {
		if p.Contains(pt) {
			index = i
			break
		}
	}
	if index < 0 || c.sims[index] == nil {
		return DragResult{}, ErrNoSubject
	}

	s := c.sims[index]
	node, ok := s.Find(x, y, 0)
	if !ok {
		return DragResult{}, ErrNoSubject
	}
	c.releaseDragOn(-1)
	c.drag = &dragState{owner: owner, polygon: index, node: node}

	p := c.polygons[index]
	if c.opts.DragMode == DragFollow {
		s.SetForce(ForceCenter, force.NewCenter(x, y))
	}
	s.SetAlphaTarget(dragAlphaTarget)
	s.Restart()
	c.pinInside(p, node, pt)
	c.version++
	return DragResult{Polygon: index, Node: viewNode(node)}, nil
}

// DragMoveAs moves the building dragged by owner.
func (c *City) DragMoveAs(owner string, x, y float64) (DragResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkDragOwner(owner); err != nil {
		return DragResult{}, err
	}
	pt := geometry.Pt(x, y)
	if !pt.IsFinite() {
		return DragResult{}, fmt.Errorf("%w: non-finite pointer", ErrNoSubject)
	}
	p := c.polygons[c.drag.polygon]
	if c.opts.DragMode == DragFollow {
		c.sims[c.drag.polygon].SetForce(ForceCenter, force.NewCenter(x, y))
	}
	c.pinInside(p, c.drag.node, pt)
	c.version++
	return DragResult{Polygon: c.drag.polygon, Node: viewNode(c.drag.node)}, nil
}

// DragEndAs ends the drag held by owner.
func (c *City) DragEndAs(owner string) (DragResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkDragOwner(owner); err != nil {
		return DragResult{}, err
	}
	d := c.drag
	c.releaseDragOn(-1)
	c.version++
	return DragResult{Polygon: d.polygon, Node: viewNode(d.node)}, nil
}

// checkDragOwner reports ErrNotDragging unless owner holds the current drag.
// The lock must be held.
func (c *City) checkDragOwner(owner string) error {
	if c.drag == nil {
		return ErrNotDragging
	}
	if c.drag.owner != owner {
		return fmt.Errorf("%w: held by another client", ErrNotDragging)
	}
	return nil
}

// releaseDragOn ends the current drag when it targets polygon, or any drag
// when polygon is negative. The lock must be held.
func (c *City) releaseDragOn(polygon int) {
	d := c.drag
	if d == nil || (polygon >= 0 && d.polygon != polygon) {
		return
	}
	c.drag = nil
	d.node.Unpin()

	s := c.sims[d.polygon]
	if s == nil || !containsNode(s, d.node) {
		return
	}
	p := c.polygons[d.polygon]
	if c.opts.DragMode == DragFollow {
		s.SetForce(ForceCenter, force.NewCenter(p.Center.X, p.Center.Y))
	}
	s.SetAlphaTarget(0)
	if !c.simulating {
		s.Stop()
	}
}

// pinInside pins node at pt, or where the segment from the polygon center
// to pt leaves the polygon.
func (c *City) pinInside(p *Polygon, node *sim.Node, pt geometry.Point) {
	q := p.clampInside(pt)
	node.Pin(q.X, q.Y)
}

// PinNode fixes one building at (x, y) clamped to its polygon.
func (c *City) PinNode(polygon, node int, x, y float64) (NodeView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, n, err := c.node(polygon, node)
	if err != nil {
		return NodeView{}, err
	}
	pt := geometry.Pt(x, y)
	if !pt.IsFinite() {
		return NodeView{}, fmt.Errorf("%w: non-finite position", ErrNodeNotFound)
	}
	c.pinInside(p, n, pt)
	c.version++
	return viewNode(n), nil
}

// ReleaseNode clears the pin of one building and its simulation's alpha
// target.
func (c *City) ReleaseNode(polygon, node int) (NodeView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, n, err := c.node(polygon, node)
	if err != nil {
		return NodeView{}, err
	}
	if c.drag != nil && c.drag.node == n {
		c.releaseDragOn(polygon)
	} else {
		n.Unpin()
		c.sims[polygon].SetAlphaTarget(0)
	}
	c.version++
	return viewNode(n), nil
}

func (c *City) node(polygon, node int) (*Polygon, *sim.Node, error) {
	p, err := c.polygon(polygon)
	if err != nil {
		return nil, nil, err
	}
	if node < 0 || node >= len(p.Children) {
		return nil, nil, fmt.Errorf("%w: polygon %d node %d", ErrNodeNotFound, polygon, node)
	}
	return p, p.Children[node], nil
}

func containsNode(s *sim.Simulation, n *sim.Node) bool {
	for _, m := range s.Nodes() {
		if m == n {
			return true
		}
	}
	return false
}
