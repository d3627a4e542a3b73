package shape

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Clamp01 limits v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampPoint limits both coordinates of p to the image.
func ClampPoint(p Point) Point {
	return Point{X: Clamp01(p.X), Y: Clamp01(p.Y)}
}

// ClampRect limits r to the image: the origin is clamped first, then the
// dimensions are made non-negative and trimmed at the right and bottom edges.
func ClampRect(r Rect) Rect {
	x, y := Clamp01(r.X), Clamp01(r.Y)
	w := math.Min(math.Max(r.Width, 0), 1-x)
	h := math.Min(math.Max(r.Height, 0), 1-y)
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// RectFromCorners returns the normalized rectangle spanned by two opposite
// corners, whichever direction the drag went.
func RectFromCorners(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Area returns the normalized area of s: rectangle area for boxes and mask
// bounds, shoelace area for polygons, 0 otherwise.
func Area(s Shape) float64 {
	switch s.Kind {
	case KindBox:
		return s.Box.Area()
	case KindPolygon:
		return PolygonArea(s.Points)
	case KindMask:
		if s.Bounds != nil {
			return s.Bounds.Area()
		}
	}
	return 0
}

// PolygonArea returns the absolute shoelace area of a closed ring.
func PolygonArea(pts []Point) float64 {
	var area float64
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(area / 2)
}

// Centroid returns the vertex average of pts.
func Centroid(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var sum r2.Vec
	for _, p := range pts {
		sum = r2.Add(sum, vec(p))
	}
	c := r2.Scale(1/float64(len(pts)), sum)
	return Point{X: c.X, Y: c.Y}
}

// BoundingRect returns the smallest rectangle enclosing s. Masks without
// bounds report the whole image, since their payload is never decoded here.
func BoundingRect(s Shape) Rect {
	switch s.Kind {
	case KindBox:
		return s.Box
	case KindPoint:
		return Rect{X: s.At.X, Y: s.At.Y}
	case KindMask:
		if s.Bounds != nil {
			return *s.Bounds
		}
		return Rect{Width: 1, Height: 1}
	}

	if len(s.Points) == 0 {
		return Rect{}
	}
	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range s.Points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains reports whether p hits s. tolerance is the normalized distance
// used for shapes without area (polyline segments and points).
func Contains(s Shape, p Point, tolerance float64) bool {
	switch s.Kind {
	case KindBox:
		return rectContains(s.Box, p)
	case KindMask:
		return rectContains(BoundingRect(s), p)
	case KindPolygon:
		return PointInPolygon(p, s.Points)
	case KindPolyline:
		for i := 0; i+1 < len(s.Points); i++ {
			if SegmentDistance(p, s.Points[i], s.Points[i+1]) <= tolerance {
				return true
			}
		}
		return false
	case KindPoint:
		return Distance(p, s.At) < tolerance
	}
	return false
}

func rectContains(r Rect, p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// PointInPolygon is the even-odd ray casting test.
func PointInPolygon(p Point, ring []Point) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Distance is the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(vec(b), vec(a)))
}

// SegmentDistance returns the distance from p to the closed segment ab.
func SegmentDistance(p, a, b Point) float64 {
	ab := r2.Sub(vec(b), vec(a))
	l2 := r2.Dot(ab, ab)
	if l2 == 0 {
		return Distance(p, a)
	}
	t := r2.Dot(r2.Sub(vec(p), vec(a)), ab) / l2
	t = math.Max(0, math.Min(1, t))
	proj := r2.Add(vec(a), r2.Scale(t, ab))
	return r2.Norm(r2.Sub(vec(p), proj))
}

// Simplify reduces a vertex path with the Douglas-Peucker algorithm. Paths of
// two points or fewer are returned unchanged. The result always keeps the
// first and last vertex.
func Simplify(pts []Point, tolerance float64) []Point {
	if len(pts) <= 2 {
		return clonePoints(pts)
	}

	first, last := pts[0], pts[len(pts)-1]
	maxDist, index := 0.0, 0
	for i := 1; i < len(pts)-1; i++ {
		if d := lineDistance(pts[i], first, last); d > maxDist {
			maxDist, index = d, i
		}
	}

	if maxDist > tolerance {
		left := Simplify(pts[:index+1], tolerance)
		right := Simplify(pts[index:], tolerance)
		return append(left[:len(left)-1], right...)
	}
	return []Point{first, last}
}

// lineDistance is the perpendicular distance from p to the infinite line
// through a and b.
func lineDistance(p, a, b Point) float64 {
	ab := r2.Sub(vec(b), vec(a))
	l2 := r2.Dot(ab, ab)
	if l2 == 0 {
		return Distance(p, a)
	}
	u := r2.Dot(r2.Sub(vec(p), vec(a)), ab) / l2
	proj := r2.Add(vec(a), r2.Scale(u, ab))
	return r2.Norm(r2.Sub(vec(p), proj))
}

func vec(p Point) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}
