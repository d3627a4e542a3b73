package transform

import (
	"fmt"
	"strings"

	"github.com/ironsheep/annotation-mcp/internal/shape"
)

// Scale is a coordinate unit convention for inbound payloads.
type Scale int

const (
	// Fraction treats 1.0 as the full image. This is the engine's own unit.
	Fraction Scale = iota
	// Percent treats 100.0 as the full image.
	Percent
)

// Factor returns the value that represents the full image.
func (s Scale) Factor() float64 {
	if s == Percent {
		return 100
	}
	return 1
}

// String returns "fraction" or "percent".
func (s Scale) String() string {
	if s == Percent {
		return "percent"
	}
	return "fraction"
}

// ParseScale accepts "fraction" (or empty) and "percent".
func ParseScale(v string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "fraction":
		return Fraction, nil
	case "percent":
		return Percent, nil
	}
	return Fraction, fmt.Errorf("unknown coordinate scale %q", v)
}

// FromScale converts a value in scale units to a fraction. It does not clamp.
func FromScale(v float64, s Scale) float64 {
	return v / s.Factor()
}

// PixelPoint is a canvas position in pixels.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PixelRect is a canvas rectangle in pixels.
type PixelRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToPixel converts a normalized coordinate to pixels along one axis.
func ToPixel(v, extent float64) float64 {
	return v * extent
}

// ToNormalized converts a pixel coordinate to a clamped fraction of extent.
// A non-positive extent yields 0.
func ToNormalized(px, extent float64) float64 {
	if extent <= 0 {
		return 0
	}
	return shape.Clamp01(px / extent)
}

// PointToPixel places a normalized point on the canvas.
func PointToPixel(p shape.Point, canvas Size) PixelPoint {
	return PixelPoint{X: ToPixel(p.X, canvas.Width), Y: ToPixel(p.Y, canvas.Height)}
}

// PointToNormalized converts a canvas position to a clamped image point.
func PointToNormalized(p PixelPoint, canvas Size) shape.Point {
	return shape.Point{X: ToNormalized(p.X, canvas.Width), Y: ToNormalized(p.Y, canvas.Height)}
}

// RectToPixel places a normalized rectangle on the canvas.
func RectToPixel(r shape.Rect, canvas Size) PixelRect {
	return PixelRect{
		X:      ToPixel(r.X, canvas.Width),
		Y:      ToPixel(r.Y, canvas.Height),
		Width:  ToPixel(r.Width, canvas.Width),
		Height: ToPixel(r.Height, canvas.Height),
	}
}

// RectToNormalized converts a canvas rectangle to a normalized rectangle,
// clamped to the image.
func RectToNormalized(r PixelRect, canvas Size) shape.Rect {
	if !canvas.Valid() {
		return shape.Rect{}
	}
	return shape.ClampRect(shape.Rect{
		X:      r.X / canvas.Width,
		Y:      r.Y / canvas.Height,
		Width:  r.Width / canvas.Width,
		Height: r.Height / canvas.Height,
	})
}

// PointsToPixel places every vertex of a path on the canvas.
func PointsToPixel(pts []shape.Point, canvas Size) []PixelPoint {
	out := make([]PixelPoint, len(pts))
	for i, p := range pts {
		out[i] = PointToPixel(p, canvas)
	}
	return out
}

// PixelShape is a shape's geometry placed on the canvas. Only the fields of
// the shape's kind are set; a mask without bounds has no geometry.
type PixelShape struct {
	Rect   PixelRect
	Points []PixelPoint
	At     PixelPoint
}

// ShapeToPixel places a shape's geometry on the canvas.
func ShapeToPixel(s shape.Shape, canvas Size) PixelShape {
	var out PixelShape
	switch s.Kind {
	case shape.KindBox:
		out.Rect = RectToPixel(s.Box, canvas)
	case shape.KindPolygon, shape.KindPolyline:
		out.Points = PointsToPixel(s.Points, canvas)
	case shape.KindPoint:
		out.At = PointToPixel(s.At, canvas)
	case shape.KindMask:
		if s.Bounds != nil {
			out.Rect = RectToPixel(*s.Bounds, canvas)
		}
	}
	return out
}
