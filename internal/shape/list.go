package shape

import "fmt"

// List is the authoritative, ordered set of committed shapes for one image.
// Later shapes render on top of earlier ones.
type List []Shape

// Patch describes an edit to a committed shape. Nil fields are left as is.
// Geometry fields that do not belong to the target's Kind are ignored.
type Patch struct {
	Label      *string
	Confidence *float64
	Text       *string
	Box        *Rect
	Points     []Point
	At         *Point
	Bounds     *Rect
}

// Get returns the shape with the given id.
func (l List) Get(id string) (Shape, bool) {
	if i := l.index(id); i >= 0 {
		return l[i].Clone(), true
	}
	return Shape{}, false
}

// IDs returns the ids of every shape, in order.
func (l List) IDs() []string {
	ids := make([]string, len(l))
	for i, s := range l {
		ids[i] = s.ID
	}
	return ids
}

// Add returns a new list with s appended.
//
// Fails with ErrInvalidGeometry if s is invalid or its id is already taken.
func (l List) Add(s Shape) (List, error) {
	if err := Validate(s); err != nil {
		return l, err
	}
	if l.index(s.ID) >= 0 {
		return l, fmt.Errorf("%w: duplicate id %q", ErrInvalidGeometry, s.ID)
	}
	out := l.clone(len(l) + 1)
	return append(out, s.Clone()), nil
}

// Update returns a new list with the patch applied to the shape with the
// given id. The patched shape is validated before it replaces the original.
func (l List) Update(id string, p Patch) (List, error) {
	i := l.index(id)
	if i < 0 {
		return l, fmt.Errorf("update %q: %w", id, ErrNotFound)
	}

	s := l[i].Clone()
	p.apply(&s)
	if err := Validate(s); err != nil {
		return l, fmt.Errorf("update %q: %w", id, err)
	}

	out := l.clone(len(l))
	out[i] = s
	return out, nil
}

// Remove returns a new list without the shape with the given id. Every
// other shape keeps its fields, id included, and its position.
func (l List) Remove(id string) (List, error) {
	i := l.index(id)
	if i < 0 {
		return l, fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	out := make(List, 0, len(l)-1)
	for j, s := range l {
		if j != i {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// MoveVertex returns a new list with one vertex of a path shape (or the
// location of a point shape) moved to p. p is clamped into the image.
func (l List) MoveVertex(id string, index int, p Point) (List, error) {
	s, ok := l.Get(id)
	if !ok {
		return l, fmt.Errorf("move vertex of %q: %w", id, ErrNotFound)
	}
	p = ClampPoint(p)

	var patch Patch
	switch s.Kind {
	case KindPolygon, KindPolyline:
		if index < 0 || index >= len(s.Points) {
			return l, fmt.Errorf("%w: vertex %d out of range for %q", ErrInvalidGeometry, index, id)
		}
		s.Points[index] = p
		patch.Points = s.Points
	case KindPoint:
		patch.At = &p
	default:
		return l, fmt.Errorf("%w: %s has no vertices", ErrInvalidGeometry, s.Kind)
	}
	return l.Update(id, patch)
}

func (p Patch) apply(s *Shape) {
	if p.Label != nil {
		s.Label = *p.Label
	}
	if p.Confidence != nil {
		s.Confidence = *p.Confidence
	}
	if p.Text != nil {
		s.Text = *p.Text
	}

	switch s.Kind {
	case KindBox:
		if p.Box != nil {
			s.Box = *p.Box
		}
	case KindPolygon, KindPolyline:
		if p.Points != nil {
			s.Points = clonePoints(p.Points)
		}
	case KindPoint:
		if p.At != nil {
			s.At = *p.At
		}
	case KindMask:
		if p.Bounds != nil {
			b := *p.Bounds
			s.Bounds = &b
		}
	}
}

func (l List) index(id string) int {
	for i, s := range l {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (l List) clone(capacity int) List {
	out := make(List, len(l), capacity)
	for i, s := range l {
		out[i] = s.Clone()
	}
	return out
}
