package shape

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is returned when a shape violates its variant's
	// minimum point count, a dimension is negative, or a coordinate falls
	// outside the image.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrNotFound is returned when an operation references an unknown id.
	ErrNotFound = errors.New("shape not found")
)

// Kind discriminates the annotation variants. The string values are the
// "type" tags of the canonical JSON form.
type Kind string

const (
	KindBox      Kind = "bbox"
	KindPolygon  Kind = "polygon"
	KindPolyline Kind = "polyline"
	KindPoint    Kind = "point"
	KindMask     Kind = "mask"
)

// Kinds lists every variant in canonical order.
var Kinds = []Kind{KindBox, KindPolygon, KindPolyline, KindPoint, KindMask}

// Valid reports whether k is one of the known variants.
func (k Kind) Valid() bool {
	switch k {
	case KindBox, KindPolygon, KindPolyline, KindPoint, KindMask:
		return true
	}
	return false
}

// MinPoints returns the committed vertex minimum for path variants and 0 for
// the others.
func (k Kind) MinPoints() int {
	switch k {
	case KindPolygon:
		return 3
	case KindPolyline:
		return 2
	}
	return 0
}

// ParseKind converts a type tag into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown shape type %q", s)
	}
	return k, nil
}

// Point is a normalized image coordinate.
type Point struct {
	X float64 `json:"x"` // Fraction of image width (0 = left edge)
	Y float64 `json:"y"` // Fraction of image height (0 = top edge)
}

// Rect is a normalized axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns Width * Height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Max returns the bottom-right corner.
func (r Rect) Max() Point {
	return Point{X: r.X + r.Width, Y: r.Y + r.Height}
}

// Shape is one committed annotation.
//
// Only the geometry fields belonging to Kind are meaningful; the codec and
// the validators ignore the rest.
type Shape struct {
	// ID is assigned once, at creation, and is stable for the shape's lifetime.
	ID string

	// Kind selects the variant.
	Kind Kind

	// Label is free-form; it determines the render color.
	Label string

	// Confidence is caller-supplied, 0.0 to 1.0.
	Confidence float64

	// Text is an optional transcription for OCR-style regions.
	Text string

	// Box is the rectangle of a KindBox shape.
	Box Rect

	// Points are the ordered vertices of a KindPolygon or KindPolyline shape.
	Points []Point

	// At is the location of a KindPoint shape.
	At Point

	// RLE is the opaque encoded payload of a KindMask shape.
	RLE string

	// Bounds is the optional display rectangle of a KindMask shape.
	Bounds *Rect
}

// NewBox returns a bounding box shape.
func NewBox(id, label string, confidence float64, r Rect) Shape {
	return Shape{ID: id, Kind: KindBox, Label: label, Confidence: confidence, Box: r}
}

// NewPolygon returns a polygon shape. The points slice is copied.
func NewPolygon(id, label string, confidence float64, pts []Point) Shape {
	return Shape{ID: id, Kind: KindPolygon, Label: label, Confidence: confidence, Points: clonePoints(pts)}
}

// NewPolyline returns a polyline shape. The points slice is copied.
func NewPolyline(id, label string, confidence float64, pts []Point) Shape {
	return Shape{ID: id, Kind: KindPolyline, Label: label, Confidence: confidence, Points: clonePoints(pts)}
}

// NewPoint returns a single landmark shape.
func NewPoint(id, label string, confidence float64, p Point) Shape {
	return Shape{ID: id, Kind: KindPoint, Label: label, Confidence: confidence, At: p}
}

// NewMask returns a mask shape. bounds may be nil.
func NewMask(id, label string, confidence float64, rle string, bounds *Rect) Shape {
	s := Shape{ID: id, Kind: KindMask, Label: label, Confidence: confidence, RLE: rle}
	if bounds != nil {
		b := *bounds
		s.Bounds = &b
	}
	return s
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	c := s
	c.Points = clonePoints(s.Points)
	if s.Bounds != nil {
		b := *s.Bounds
		c.Bounds = &b
	}
	return c
}

func clonePoints(pts []Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}
