package city

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/metro-map/backend/internal/terrain"
)

// maxOut raises elevation and affluence of polygon i to 1.
func maxOut(t *testing.T, c *City, i int) BrushResult {
	t.Helper()
	site := c.polygons[i].Site
	b := terrain.Brush{X: site.X, Y: site.Y, Radius: 1, Increment: 100, Increase: true}
	if _, err := c.Brush(context.Background(), terrain.Elevation, b); err != nil {
		t.Fatalf("elevation brush: %v", err)
	}
	res, err := c.Brush(context.Background(), terrain.Affluence, b)
	if err != nil {
		t.Fatalf("affluence brush: %v", err)
	}
	return res
}

func TestBrushRetypesByDesirability(t *testing.T) {
	c := newTestCity(t, false)
	p := c.polygons[gridCenter]
	for _, j := range p.Neighbors {
		c.polygons[j].Type = Rich
	}
	p.Type = Poor

	res := maxOut(t, c, gridCenter)
	if len(res.Touched) != 1 || res.Touched[0] != gridCenter {
		t.Fatalf("brush touched %v, want only %d", res.Touched, gridCenter)
	}
	if p.Type != Rich {
		t.Fatalf("desirable polygon should become rich, got %s", p.Type)
	}
	if len(p.Children) == 0 || c.sims[gridCenter] == nil {
		t.Error("retyped polygon should get new buildings and a simulation")
	}

	// Already rich: painting again must not rebuild the cluster.
	children := p.Children
	res = maxOut(t, c, gridCenter)
	if len(res.Retyped) != 0 || &p.Children[0] != &children[0] {
		t.Errorf("unchanged class should not retype, retyped %v", res.Retyped)
	}
}

func TestBrushPlazaRule(t *testing.T) {
	c := newTestCity(t, false)
	p := c.polygons[gridCenter]
	mixed := []DistrictType{Poor, Medium, Medium, Poor}
	for k, j := range p.Neighbors {
		c.polygons[j].Type = mixed[k%len(mixed)]
	}
	p.Type = Medium

	res := maxOut(t, c, gridCenter)
	if p.Type != Plaza {
		t.Fatalf("rich cell between poor and medium neighbours should become a plaza, got %s", p.Type)
	}
	if len(res.Retyped) != 1 || res.Retyped[0] != gridCenter {
		t.Errorf("retyped = %v", res.Retyped)
	}
}

func TestBrushWaterKeepsPoor(t *testing.T) {
	c := newTestCity(t, false)
	p := c.polygons[gridCenter]
	for _, j := range p.Neighbors {
		c.polygons[j].Type = Poor
	}
	p.Type = Rich
	site := p.Site

	b := terrain.Brush{X: site.X, Y: site.Y, Radius: 1, Increment: 100, Increase: false}
	res, err := c.Brush(context.Background(), terrain.Elevation, b)
	if err != nil {
		t.Fatalf("Brush: %v", err)
	}
	if p.Type != Poor || len(res.Retyped) != 1 {
		t.Errorf("submerged polygon should turn poor, got %s", p.Type)
	}
	v, _ := c.Layer(terrain.Elevation)
	if !v.Water[gridCenter] {
		t.Error("polygon at elevation 0 should be water")
	}
}

func TestBrushOtherLayers(t *testing.T) {
	c := newTestCity(t, false)
	site := c.polygons[gridCenter].Site
	before := c.polygons[gridCenter].Type

	res, err := c.Brush(context.Background(), terrain.Wall, terrain.Brush{X: site.X, Y: site.Y, Radius: 5, Increment: 1, Increase: true})
	if err != nil {
		t.Fatalf("wall brush: %v", err)
	}
	if len(res.Retyped) != 0 || c.polygons[gridCenter].Type != before {
		t.Error("wall strokes must not retype")
	}
	v, _ := c.Layer(terrain.Wall)
	if v.Values[gridCenter] != terrain.WallValue {
		t.Errorf("wall = %f, want %f", v.Values[gridCenter], terrain.WallValue)
	}

	if _, err := c.Brush(context.Background(), terrain.Desirability, terrain.Brush{Radius: 5}); !errors.Is(err, terrain.ErrReadOnlyLayer) {
		t.Errorf("expected ErrReadOnlyLayer, got %v", err)
	}
	if _, err := c.Brush(context.Background(), "lava", terrain.Brush{Radius: 5}); !errors.Is(err, terrain.ErrUnknownLayer) {
		t.Errorf("expected ErrUnknownLayer, got %v", err)
	}
	if _, err := c.Brush(context.Background(), terrain.Elevation, terrain.Brush{Radius: 0}); !errors.Is(err, terrain.ErrInvalidBrush) {
		t.Errorf("expected ErrInvalidBrush, got %v", err)
	}
}

func TestLayerViews(t *testing.T) {
	c := newTestCity(t, false)

	d, err := c.Layer(terrain.District)
	if err != nil {
		t.Fatalf("district layer: %v", err)
	}
	if len(d.Types) != 16 || d.Values != nil {
		t.Fatalf("district layer should list 16 types, got %d types and %d values", len(d.Types), len(d.Values))
	}
	if d.Types[0] != Empty {
		t.Errorf("corner type = %s", d.Types[0])
	}

	e, err := c.Layer("Elevation")
	if err != nil {
		t.Fatalf("elevation layer: %v", err)
	}
	if len(e.Values) != 16 || len(e.Water) != 16 {
		t.Fatalf("elevation layer has %d values", len(e.Values))
	}
	for i, v := range e.Values {
		if v < 0 || v > 1 {
			t.Errorf("elevation %d = %f outside [0, 1]", i, v)
		}
		if e.Water[i] != (v <= e.Waterline) {
			t.Errorf("water flag of %d disagrees with elevation %f", i, v)
		}
	}

	if _, err := c.Layer("lava"); !errors.Is(err, terrain.ErrUnknownLayer) {
		t.Errorf("expected ErrUnknownLayer, got %v", err)
	}
}

func TestSetWaterline(t *testing.T) {
	c := newTestCity(t, false)
	before := c.Version()
	if err := c.SetWaterline(0.6); err != nil {
		t.Fatalf("SetWaterline: %v", err)
	}
	if got := c.Snapshot().Waterline; got != 0.6 {
		t.Errorf("waterline = %f, want 0.6", got)
	}
	if c.Version() == before {
		t.Error("moving the waterline should advance the version")
	}
	if err := c.SetWaterline(2); !errors.Is(err, terrain.ErrInvalidWaterline) {
		t.Errorf("expected ErrInvalidWaterline, got %v", err)
	}
}
