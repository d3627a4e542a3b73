package shape

import (
	"math"
	"testing"
)

func TestRectFromCorners(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want Rect
	}{
		{"down-right", Point{0.1, 0.1}, Point{0.4, 0.3}, Rect{0.1, 0.1, 0.3, 0.2}},
		{"up-left", Point{0.4, 0.3}, Point{0.1, 0.1}, Rect{0.1, 0.1, 0.3, 0.2}},
		{"down-left", Point{0.4, 0.1}, Point{0.1, 0.3}, Rect{0.1, 0.1, 0.3, 0.2}},
		{"zero", Point{0.2, 0.2}, Point{0.2, 0.2}, Rect{0.2, 0.2, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RectFromCorners(tt.a, tt.b)
			if !rectNear(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClampRect(t *testing.T) {
	got := ClampRect(Rect{X: -0.2, Y: 0.8, Width: 0.5, Height: 0.5})
	want := Rect{X: 0, Y: 0.8, Width: 0.5, Height: 0.2}
	if !rectNear(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if err := validateRect(got, "clamped"); err != nil {
		t.Errorf("clamped rect should validate: %v", err)
	}
}

func TestClamp01(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{
		{-1, 0}, {0, 0}, {0.5, 0.5}, {1, 1}, {2, 1}, {math.NaN(), 0},
	} {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPolygonArea(t *testing.T) {
	square := []Point{{0, 0}, {0.5, 0}, {0.5, 0.5}, {0, 0.5}}
	if got := PolygonArea(square); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("square area: got %v, want 0.25", got)
	}
	triangle := []Point{{0, 0}, {1, 0}, {0, 1}}
	if got := PolygonArea(triangle); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("triangle area: got %v, want 0.5", got)
	}
}

func TestContains(t *testing.T) {
	box := NewBox("b", "", 1, Rect{X: 0.2, Y: 0.2, Width: 0.2, Height: 0.2})
	poly := NewPolygon("p", "", 1, []Point{{0.5, 0.5}, {0.9, 0.5}, {0.9, 0.9}})
	line := NewPolyline("l", "", 1, []Point{{0, 0.1}, {1, 0.1}})
	pt := NewPoint("o", "", 1, Point{X: 0.7, Y: 0.2})
	mask := NewMask("m", "", 1, "9", &Rect{X: 0, Y: 0.95, Width: 1, Height: 0.05})

	tests := []struct {
		name  string
		shape Shape
		p     Point
		want  bool
	}{
		{"inside box", box, Point{0.3, 0.3}, true},
		{"box edge", box, Point{0.4, 0.4}, true},
		{"outside box", box, Point{0.5, 0.3}, false},
		{"inside polygon", poly, Point{0.85, 0.6}, true},
		{"outside polygon", poly, Point{0.55, 0.85}, false},
		{"near polyline", line, Point{0.5, 0.12}, true},
		{"far from polyline", line, Point{0.5, 0.3}, false},
		{"near point", pt, Point{0.71, 0.21}, true},
		{"far from point", pt, Point{0.8, 0.2}, false},
		{"inside mask bounds", mask, Point{0.5, 0.97}, true},
		{"outside mask bounds", mask, Point{0.5, 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(tt.shape, tt.p, 0.03); got != tt.want {
				t.Errorf("Contains: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundingRect(t *testing.T) {
	poly := NewPolygon("p", "", 1, []Point{{0.5, 0.2}, {0.9, 0.5}, {0.6, 0.9}})
	got := BoundingRect(poly)
	want := Rect{X: 0.5, Y: 0.2, Width: 0.4, Height: 0.7}
	if !rectNear(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	unbounded := NewMask("m", "", 1, "1", nil)
	if got := BoundingRect(unbounded); got != (Rect{Width: 1, Height: 1}) {
		t.Errorf("unbounded mask: got %+v, want full image", got)
	}
}

func TestSegmentDistance(t *testing.T) {
	a, b := Point{0, 0}, Point{1, 0}
	if d := SegmentDistance(Point{0.5, 0.5}, a, b); math.Abs(d-0.5) > 1e-12 {
		t.Errorf("perpendicular: got %v, want 0.5", d)
	}
	if d := SegmentDistance(Point{2, 0}, a, b); math.Abs(d-1) > 1e-12 {
		t.Errorf("past endpoint: got %v, want 1", d)
	}
	if d := SegmentDistance(Point{0.3, 0.4}, a, a); math.Abs(d-0.5) > 1e-12 {
		t.Errorf("degenerate segment: got %v, want 0.5", d)
	}
}

func TestSimplify(t *testing.T) {
	// Nearly straight middle vertex collapses, the corner stays.
	pts := []Point{{0, 0}, {0.25, 0.001}, {0.5, 0}, {0.5, 0.5}}
	got := Simplify(pts, 0.005)
	want := []Point{{0, 0}, {0.5, 0}, {0.5, 0.5}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vertex %d: got %v, want %v", i, got[i], want[i])
		}
	}

	short := []Point{{0, 0}, {1, 1}}
	if got := Simplify(short, 1); len(got) != 2 {
		t.Errorf("two-point path changed: %v", got)
	}
}

func TestCentroid(t *testing.T) {
	got := Centroid([]Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	if math.Abs(got.X-0.5) > 1e-12 || math.Abs(got.Y-0.5) > 1e-12 {
		t.Errorf("got %+v, want (0.5,0.5)", got)
	}
}

func rectNear(a, b Rect) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}
