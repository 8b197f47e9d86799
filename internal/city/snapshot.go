package city

import (
	"time"

	"github.com/onnwee/metro-map/backend/internal/geometry"
	"github.com/onnwee/metro-map/backend/internal/sim"
)

// NodeView is what a renderer needs to draw one building.
type NodeView struct {
	Index       int     `json:"index"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Orientation float64 `json:"orientation"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Radius      float64 `json:"radius"`
	Random      float64 `json:"random"`
	Sign        float64 `json:"sign"`
	OffsetX     float64 `json:"offset_x"`
	OffsetY     float64 `json:"offset_y"`
	Pinned      bool    `json:"pinned,omitempty"`
}

func viewNode(n *sim.Node) NodeView {
	return NodeView{
		Index:       n.Index,
		X:           n.X,
		Y:           n.Y,
		Orientation: n.Orientation,
		Width:       n.Width,
		Height:      n.Height,
		Radius:      n.Radius(),
		Random:      n.Random,
		Sign:        n.Sign,
		OffsetX:     n.OffsetX,
		OffsetY:     n.OffsetY,
		Pinned:      n.Pinned(),
	}
}

// PolygonView is a copy of one polygon and the state of its simulation.
type PolygonView struct {
	Index     int              `json:"index"`
	Type      DistrictType     `json:"type"`
	Color     string           `json:"color"`
	Site      geometry.Point   `json:"site"`
	Center    geometry.Point   `json:"center"`
	Vertices  []geometry.Point `json:"vertices"`
	Area      float64          `json:"area"`
	Width     float64          `json:"width"`
	Height    float64          `json:"height"`
	Neighbors []int            `json:"neighbors"`
	State     string           `json:"state"`
	Alpha     float64          `json:"alpha"`
	Ticks     uint64           `json:"ticks"`
	Nodes     []NodeView       `json:"nodes"`
}

// Snapshot is a consistent copy of the whole city.
type Snapshot struct {
	ID         string        `json:"id"`
	Version    uint64        `json:"version"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Simulating bool          `json:"simulating"`
	Waterline  float64       `json:"waterline"`
	Polygons   []PolygonView `json:"polygons"`
	TakenAt    time.Time     `json:"taken_at"`
}

// Stats summarises the city for metrics and health output.
type Stats struct {
	Polygons          int                  `json:"polygons"`
	Nodes             int                  `json:"nodes"`
	NodesByType       map[DistrictType]int `json:"nodes_by_type"`
	ActiveSimulations int                  `json:"active_simulations"`
	MeanAlpha         float64              `json:"mean_alpha"`
	Ticks             uint64               `json:"ticks"`
	Version           uint64               `json:"version"`
	Simulating        bool                 `json:"simulating"`
}

// Snapshot copies the city under the read lock.
func (c *City) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		ID:         c.id.String(),
		Version:    c.version,
		Width:      c.opts.Width,
		Height:     c.opts.Height,
		Simulating: c.simulating,
		Waterline:  c.layers.Waterline(),
		Polygons:   make([]PolygonView, len(c.polygons)),
		TakenAt:    time.Now().UTC(),
	}
	for i, p := range c.polygons {
		s.Polygons[i] = c.viewPolygon(p)
	}
	return s
}

// Polygon returns a copy of one polygon.
func (c *City) Polygon(index int) (PolygonView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, err := c.polygon(index)
	if err != nil {
		return PolygonView{}, err
	}
	return c.viewPolygon(p), nil
}

func (c *City) viewPolygon(p *Polygon) PolygonView {
	v := PolygonView{
		Index:     p.Index,
		Type:      p.Type,
		Color:     p.Type.Color(),
		Site:      p.Site,
		Center:    p.Center,
		Vertices:  append([]geometry.Point(nil), p.Vertices...),
		Area:      p.Area,
		Width:     p.Bounds.Width,
		Height:    p.Bounds.Height,
		Neighbors: append([]int(nil), p.Neighbors...),
		State:     sim.Stopped.String(),
		Ticks:     p.ticks,
		Nodes:     make([]NodeView, len(p.Children)),
	}
	if s := c.sims[p.Index]; s != nil {
		v.State = s.State().String()
		v.Alpha = s.Alpha()
	}
	for i, n := range p.Children {
		v.Nodes[i] = viewNode(n)
	}
	return v
}

// Stats counts polygons, buildings and active simulations.
func (c *City) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Stats{
		Polygons:    len(c.polygons),
		NodesByType: make(map[DistrictType]int, len(AllTypes)),
		Ticks:       c.ticks,
		Version:     c.version,
		Simulating:  c.simulating,
	}
	for _, t := range AllTypes {
		st.NodesByType[t] = 0
	}
	var alpha float64
	for _, p := range c.polygons {
		st.Nodes += len(p.Children)
		st.NodesByType[p.Type] += len(p.Children)
		if s := c.sims[p.Index]; s != nil && s.State() != sim.Stopped {
			st.ActiveSimulations++
			alpha += s.Alpha()
		}
	}
	if st.ActiveSimulations > 0 {
		st.MeanAlpha = alpha / float64(st.ActiveSimulations)
	}
	return st
}
