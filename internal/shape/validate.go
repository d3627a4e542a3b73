package shape

import (
	"fmt"
	"math"
)

// boundsEpsilon absorbs floating-point error at the image edge (x+width == 1).
const boundsEpsilon = 1e-9

// Validate checks s against its variant's validity rule.
//
// The returned error wraps ErrInvalidGeometry and names the first violation.
func Validate(s Shape) error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidGeometry)
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidGeometry, s.Kind)
	}
	if !inUnit(s.Confidence) {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidGeometry, s.Confidence)
	}

	switch s.Kind {
	case KindBox:
		return validateRect(s.Box, "box")
	case KindPolygon, KindPolyline:
		if need := s.Kind.MinPoints(); len(s.Points) < need {
			return fmt.Errorf("%w: %s needs at least %d points, has %d",
				ErrInvalidGeometry, s.Kind, need, len(s.Points))
		}
		for i, p := range s.Points {
			if err := validatePoint(p); err != nil {
				return fmt.Errorf("point %d: %w", i, err)
			}
		}
	case KindPoint:
		return validatePoint(s.At)
	case KindMask:
		if s.RLE == "" {
			return fmt.Errorf("%w: mask without rle payload", ErrInvalidGeometry)
		}
		if s.Bounds != nil {
			return validateRect(*s.Bounds, "mask bounds")
		}
	}
	return nil
}

func validatePoint(p Point) error {
	if !inUnit(p.X) || !inUnit(p.Y) {
		return fmt.Errorf("%w: point (%v,%v) outside image", ErrInvalidGeometry, p.X, p.Y)
	}
	return nil
}

func validateRect(r Rect, what string) error {
	if !inUnit(r.X) || !inUnit(r.Y) {
		return fmt.Errorf("%w: %s origin (%v,%v) outside image", ErrInvalidGeometry, what, r.X, r.Y)
	}
	if r.Width < 0 || r.Height < 0 || math.IsNaN(r.Width) || math.IsNaN(r.Height) {
		return fmt.Errorf("%w: %s has negative dimension %vx%v", ErrInvalidGeometry, what, r.Width, r.Height)
	}
	if r.X+r.Width > 1+boundsEpsilon || r.Y+r.Height > 1+boundsEpsilon {
		return fmt.Errorf("%w: %s extends past image edge", ErrInvalidGeometry, what)
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
