package terrain

import (
	"errors"
	"math"
	"testing"

	"github.com/onnwee/metro-map/backend/internal/geometry"
)

func newTestLayers(t *testing.T) *Layers {
	t.Helper()
	sites := []geometry.Point{{X: 10, Y: 10}, {X: 50, Y: 50}, {X: 55, Y: 50}, {X: 90, Y: 90}}
	l, err := NewLayers(sites, 100, 100, 42, DefaultWaterline)
	if err != nil {
		t.Fatalf("NewLayers: %v", err)
	}
	return l
}

func TestParseLayer(t *testing.T) {
	tests := []struct {
		in      string
		want    Layer
		wantErr bool
	}{
		{"elevation", Elevation, false},
		{" Affluence ", Affluence, false},
		{"DESIRABILITY", Desirability, false},
		{"wall", Wall, false},
		{"district", District, false},
		{"height", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLayer(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownLayer) {
				t.Errorf("ParseLayer(%q): expected ErrUnknownLayer, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLayer(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNewLayersSeedsElevation(t *testing.T) {
	l := newTestLayers(t)
	if l.Len() != 4 {
		t.Fatalf("expected 4 sites, got %d", l.Len())
	}
	for i := 0; i < l.Len(); i++ {
		s, _ := l.Site(i)
		if s.Elevation < 0 || s.Elevation > 1 {
			t.Errorf("site %d elevation %f outside [0,1]", i, s.Elevation)
		}
		if s.Affluence != 0 || s.Wall != 0 {
			t.Errorf("site %d should start with zero affluence and wall", i)
		}
	}

	again := newTestLayers(t)
	for i := 0; i < l.Len(); i++ {
		a, _ := l.Value(Elevation, i)
		b, _ := again.Value(Elevation, i)
		if a != b {
			t.Errorf("same seed should give same elevation at %d: %f vs %f", i, a, b)
		}
	}

	if _, err := NewLayers(nil, 10, 10, 1, 1.5); !errors.Is(err, ErrInvalidWaterline) {
		t.Errorf("expected ErrInvalidWaterline, got %v", err)
	}
}

func TestDesirability(t *testing.T) {
	l := newTestLayers(t)
	_ = l.Set(Elevation, 0, 0.8)
	_ = l.Set(Affluence, 0, 0.4)
	if d := l.DesirabilityOf(0); math.Abs(d-0.6) > 1e-12 {
		t.Errorf("expected 0.6, got %f", d)
	}

	_ = l.Set(Elevation, 1, 0.2)
	_ = l.Set(Affluence, 1, 1)
	if d := l.DesirabilityOf(1); d != 0 {
		t.Errorf("site at the waterline should have zero desirability, got %f", d)
	}
	if !l.IsWater(1) {
		t.Error("site at the waterline should be water")
	}

	if err := l.SetWaterline(0.1); err != nil {
		t.Fatalf("SetWaterline: %v", err)
	}
	if d := l.DesirabilityOf(1); math.Abs(d-0.6) > 1e-12 {
		t.Errorf("lowering the waterline should expose the site, got %f", d)
	}
	if err := l.SetWaterline(-0.1); !errors.Is(err, ErrInvalidWaterline) {
		t.Errorf("expected ErrInvalidWaterline, got %v", err)
	}

	if err := l.Set(Desirability, 0, 1); !errors.Is(err, ErrReadOnlyLayer) {
		t.Errorf("desirability should be read-only, got %v", err)
	}
}

func TestApplyBrush(t *testing.T) {
	l := newTestLayers(t)
	for i := 0; i < l.Len(); i++ {
		_ = l.Set(Elevation, i, 0.5)
	}

	touched, err := l.Apply(Elevation, Brush{X: 50, Y: 50, Radius: 10, Increment: 20, Increase: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(touched) != 2 || touched[0] != 1 || touched[1] != 2 {
		t.Fatalf("expected sites 1 and 2 touched, got %v", touched)
	}

	// Site 1 sits under the pointer: full increment.
	if e, _ := l.Value(Elevation, 1); math.Abs(e-0.7) > 1e-12 {
		t.Errorf("expected 0.7 under the pointer, got %f", e)
	}
	// Site 2 is 5 away: 1 - 25/100 = 0.75 of the increment.
	if e, _ := l.Value(Elevation, 2); math.Abs(e-0.65) > 1e-12 {
		t.Errorf("expected 0.65 at half radius, got %f", e)
	}
	if e, _ := l.Value(Elevation, 0); e != 0.5 {
		t.Errorf("site outside the brush changed to %f", e)
	}

	for i := 0; i < 10; i++ {
		_, _ = l.Apply(Elevation, Brush{X: 50, Y: 50, Radius: 10, Increment: 50, Increase: false})
	}
	if e, _ := l.Value(Elevation, 1); e != 0 {
		t.Errorf("elevation should clamp at 0, got %f", e)
	}
	for i := 0; i < 10; i++ {
		_, _ = l.Apply(Affluence, Brush{X: 50, Y: 50, Radius: 10, Increment: 50, Increase: true})
	}
	if a, _ := l.Value(Affluence, 1); a != 1 {
		t.Errorf("affluence should clamp at 1, got %f", a)
	}
}

func TestApplyWallBrush(t *testing.T) {
	l := newTestLayers(t)
	if _, err := l.Apply(Wall, Brush{X: 10, Y: 10, Radius: 5, Increment: 1, Increase: true}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if w, _ := l.Value(Wall, 0); w != WallValue {
		t.Errorf("expected wall %f, got %f", WallValue, w)
	}
	_, _ = l.Apply(Wall, Brush{X: 10, Y: 10, Radius: 5, Increment: 1, Increase: false})
	if w, _ := l.Value(Wall, 0); w != 0 {
		t.Errorf("expected wall cleared, got %f", w)
	}
}

func TestApplyErrors(t *testing.T) {
	l := newTestLayers(t)
	if _, err := l.Apply(Desirability, Brush{Radius: 10}); !errors.Is(err, ErrReadOnlyLayer) {
		t.Errorf("expected ErrReadOnlyLayer, got %v", err)
	}
	if _, err := l.Apply(District, Brush{Radius: 10}); !errors.Is(err, ErrReadOnlyLayer) {
		t.Errorf("expected ErrReadOnlyLayer for district, got %v", err)
	}
	if _, err := l.Apply(Elevation, Brush{Radius: 0}); !errors.Is(err, ErrInvalidBrush) {
		t.Errorf("expected ErrInvalidBrush, got %v", err)
	}
	if _, err := l.Value(Elevation, 99); !errors.Is(err, ErrSiteOutOfRange) {
		t.Errorf("expected ErrSiteOutOfRange, got %v", err)
	}
	if _, err := l.Values(District); !errors.Is(err, ErrUnknownLayer) {
		t.Errorf("district is not numeric, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		d    float64
		want Class
	}{
		{1, ClassRich},
		{0.7, ClassRich},
		{0.69, ClassMedium},
		{0.31, ClassMedium},
		{0.3, ClassPoor},
		{0, ClassPoor},
	}
	for _, tt := range tests {
		if got := Classify(tt.d); got != tt.want {
			t.Errorf("Classify(%f) = %s, want %s", tt.d, got, tt.want)
		}
	}
}
