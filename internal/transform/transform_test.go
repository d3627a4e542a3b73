package transform

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ironsheep/annotation-mcp/internal/shape"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name       string
		natural    Size
		container  Container
		wantWidth  float64
		wantHeight float64
	}{
		{"wide image under max height", Size{1600, 900}, Container{Width: 800, MaxHeight: 600}, 800, 450},
		{"wide image clamped by max height", Size{1600, 900}, Container{Width: 800, MaxHeight: 300}, 533.333, 300},
		{"tall image clamped", Size{600, 1200}, Container{Width: 800, MaxHeight: 600}, 300, 600},
		{"padding subtracted", Size{1000, 500}, Container{Width: 832, MaxHeight: 600, Padding: 32}, 800, 400},
		{"unbounded height", Size{100, 1000}, Container{Width: 200}, 200, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fit(tt.natural, tt.container)
			if err != nil {
				t.Fatalf("Fit failed: %v", err)
			}
			if math.Abs(got.Width-tt.wantWidth) > 0.01 {
				t.Errorf("Width: got %.3f, want %.3f", got.Width, tt.wantWidth)
			}
			if math.Abs(got.Height-tt.wantHeight) > 0.01 {
				t.Errorf("Height: got %.3f, want %.3f", got.Height, tt.wantHeight)
			}
		})
	}
}

func TestFit_Errors(t *testing.T) {
	if _, err := Fit(Size{}, Container{Width: 800}); !errors.Is(err, ErrNoDimensions) {
		t.Errorf("expected ErrNoDimensions, got %v", err)
	}
	if _, err := Fit(Size{100, 100}, Container{Width: 20, Padding: 32}); !errors.Is(err, ErrNoRoom) {
		t.Errorf("expected ErrNoRoom, got %v", err)
	}
}

func TestFit_Idempotent(t *testing.T) {
	natural := Size{1600, 900}
	c := Container{Width: 777, MaxHeight: 333, Padding: 7}

	first, err := Fit(natural, c)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	second, err := Fit(natural, c)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if first != second {
		t.Errorf("Fit not idempotent: %+v vs %+v", first, second)
	}
}

func TestRectRoundTrip(t *testing.T) {
	canvases := []Size{{800, 450}, {533.3333333, 300}, {1, 1}, {1920, 1080}}
	rects := []shape.Rect{
		{X: 0.1, Y: 0.1, Width: 0.04, Height: 0.06},
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 0.333, Y: 0.777, Width: 0.2, Height: 0.1},
	}

	for _, canvas := range canvases {
		for _, r := range rects {
			back := RectToNormalized(RectToPixel(r, canvas), canvas)
			if math.Abs(back.X-r.X) > 1e-9 || math.Abs(back.Y-r.Y) > 1e-9 ||
				math.Abs(back.Width-r.Width) > 1e-9 || math.Abs(back.Height-r.Height) > 1e-9 {
				t.Errorf("round trip on %+v: got %+v, want %+v", canvas, back, r)
			}
		}
	}
}

func TestPointToNormalized_Clamps(t *testing.T) {
	canvas := Size{800, 450}
	tests := []struct {
		in   PixelPoint
		want shape.Point
	}{
		{PixelPoint{400, 225}, shape.Point{X: 0.5, Y: 0.5}},
		{PixelPoint{-10, 500}, shape.Point{X: 0, Y: 1}},
		{PixelPoint{900, -1}, shape.Point{X: 1, Y: 0}},
	}
	for _, tt := range tests {
		if got := PointToNormalized(tt.in, canvas); got != tt.want {
			t.Errorf("PointToNormalized(%+v): got %+v, want %+v", tt.in, got, tt.want)
		}
	}

	if got := ToNormalized(10, 0); got != 0 {
		t.Errorf("zero extent: got %v, want 0", got)
	}
}

func TestParseScale(t *testing.T) {
	for in, want := range map[string]Scale{"": Fraction, "fraction": Fraction, "Percent": Percent} {
		got, err := ParseScale(in)
		if err != nil || got != want {
			t.Errorf("ParseScale(%q): got %v, %v", in, got, err)
		}
	}
	if _, err := ParseScale("permille"); err == nil {
		t.Error("expected error for unknown scale")
	}
	if got := FromScale(25, Percent); got != 0.25 {
		t.Errorf("FromScale percent: got %v, want 0.25", got)
	}
}

func TestViewport(t *testing.T) {
	v := NewViewport(Container{Width: 800, MaxHeight: 600})

	if _, ok := v.Canvas(); ok {
		t.Error("pending viewport must not produce a canvas")
	}
	if _, ok := v.ToNormalized(PixelPoint{1, 1}); ok {
		t.Error("pending viewport must not convert pointers")
	}

	if err := v.SetImage(Size{1600, 900}); err != nil {
		t.Fatalf("SetImage failed: %v", err)
	}
	canvas, ok := v.Canvas()
	if !ok || math.Abs(canvas.Width-800) > 1e-9 || math.Abs(canvas.Height-450) > 1e-9 {
		t.Errorf("canvas: got %+v (%v), want 800x450", canvas, ok)
	}

	// Repeated identical resizes give identical output.
	v.Resize(Container{Width: 800, MaxHeight: 300})
	a, _ := v.Canvas()
	v.Resize(Container{Width: 800, MaxHeight: 300})
	b, _ := v.Canvas()
	if a != b || math.Abs(a.Height-300) > 1e-9 {
		t.Errorf("resize not idempotent: %+v vs %+v", a, b)
	}

	v.FailImage(errors.New("404"))
	if v.State() != ImageFailed || v.Err() == nil {
		t.Errorf("expected failed state, got %v", v.State())
	}
	if _, ok := v.Canvas(); ok {
		t.Error("failed viewport must not produce a canvas")
	}

	if err := v.SetImage(Size{0, 10}); !errors.Is(err, ErrNoDimensions) {
		t.Errorf("expected ErrNoDimensions, got %v", err)
	}
}

func TestViewport_FitCanvas(t *testing.T) {
	v := NewViewport(Container{Width: 432, Padding: 32})

	if _, err := v.FitCanvas(); !errors.Is(err, ErrNoDimensions) {
		t.Errorf("pending: expected ErrNoDimensions, got %v", err)
	}

	v.FailImage(errors.New("404 not found"))
	_, err := v.FitCanvas()
	if !errors.Is(err, ErrNoDimensions) || !strings.Contains(err.Error(), "404 not found") {
		t.Errorf("failed: expected ErrNoDimensions with cause, got %v", err)
	}

	// A size supplied later recovers the failed viewport.
	if err := v.SetImage(Size{200, 100}); err != nil {
		t.Fatalf("SetImage failed: %v", err)
	}
	canvas, err := v.FitCanvas()
	if err != nil || canvas != (Size{400, 200}) {
		t.Errorf("loaded: got %+v, %v", canvas, err)
	}

	v.Resize(Container{Width: 10, Padding: 32})
	if _, err := v.FitCanvas(); !errors.Is(err, ErrNoRoom) {
		t.Errorf("expected ErrNoRoom, got %v", err)
	}
	if _, ok := v.Canvas(); ok {
		t.Error("Canvas should agree with FitCanvas")
	}
}

func TestShapeToPixel(t *testing.T) {
	canvas := Size{200, 100}

	box := ShapeToPixel(shape.NewBox("a", "", 1, shape.Rect{X: 0.5, Y: 0.5, Width: 0.25, Height: 0.5}), canvas)
	if box.Rect != (PixelRect{X: 100, Y: 50, Width: 50, Height: 50}) {
		t.Errorf("box: got %+v", box.Rect)
	}

	line := ShapeToPixel(shape.NewPolyline("b", "", 1, []shape.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}), canvas)
	if len(line.Points) != 2 || line.Points[1] != (PixelPoint{200, 100}) {
		t.Errorf("polyline: got %+v", line.Points)
	}

	mask := ShapeToPixel(shape.NewMask("c", "", 1, "1", nil), canvas)
	if mask.Rect != (PixelRect{}) {
		t.Errorf("mask without bounds should have no geometry, got %+v", mask.Rect)
	}
}
