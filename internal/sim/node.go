package sim

import (
	"fmt"
	"math"
)

// initialAngle is the golden-angle step used to lay out unplaced nodes.
var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Node is a building positioned by a simulation.
type Node struct {
	Index int `json:"index"`

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`

	// FX and FY pin the node when non-nil.
	FX *float64 `json:"fx,omitempty"`
	FY *float64 `json:"fy,omitempty"`

	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Orientation float64 `json:"orientation"`

	// Parent is the index of the owning polygon.
	Parent int `json:"parent"`

	// Renderer hints.
	Random  float64 `json:"random"`
	Sign    float64 `json:"sign"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// NewNode returns an unplaced node of the given size owned by parent.
func NewNode(parent int, width, height float64) (*Node, error) {
	n := &Node{
		Parent: parent,
		Width:  width,
		Height: height,
		X:      math.NaN(),
		Y:      math.NaN(),
		Sign:   1,
	}
	if err := n.validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Radius is the half-diagonal of the building footprint.
func (n *Node) Radius() float64 {
	return math.Sqrt((n.Width/2)*(n.Width/2) + (n.Height/2)*(n.Height/2))
}

// Pin fixes the node at (x, y) until Unpin is called. The node moves there
// at once so views taken before the next tick agree with the pin.
func (n *Node) Pin(x, y float64) {
	n.FX = &x
	n.FY = &y
	n.X, n.Y = x, y
	n.VX, n.VY = 0, 0
}

// Unpin releases a pinned node.
func (n *Node) Unpin() {
	n.FX = nil
	n.FY = nil
}

// Pinned reports whether the node is fixed in place.
func (n *Node) Pinned() bool {
	return n.FX != nil || n.FY != nil
}

func (n *Node) validate() error {
	if !(n.Width > 0) || !(n.Height > 0) || math.IsInf(n.Width, 0) || math.IsInf(n.Height, 0) {
		return fmt.Errorf("%w: size %gx%g", ErrInvalidNode, n.Width, n.Height)
	}
	return nil
}

// Phyllotaxis returns the offset of the i-th node in the sunflower layout
// used to seed unplaced nodes.
func Phyllotaxis(i int) (dx, dy float64) {
	radius := 10 * math.Sqrt(0.5+float64(i))
	angle := float64(i) * initialAngle
	return radius * math.Cos(angle), radius * math.Sin(angle)
}
