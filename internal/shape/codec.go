package shape

import (
	"encoding/json"
	"fmt"
)

// wireShape is the canonical persisted form. Geometry fields are pointers so
// zero coordinates are still emitted for the variants that own them.
type wireShape struct {
	ID         string   `json:"id"`
	Type       Kind     `json:"type"`
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Text       string   `json:"text,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	Points     []Point  `json:"points,omitempty"`
	RLE        string   `json:"rle,omitempty"`
	Bounds     *Rect    `json:"bounds,omitempty"`
}

// MarshalJSON encodes s in the canonical typed-union form.
func (s Shape) MarshalJSON() ([]byte, error) {
	w := wireShape{
		ID:         s.ID,
		Type:       s.Kind,
		Label:      s.Label,
		Confidence: s.Confidence,
		Text:       s.Text,
	}

	switch s.Kind {
	case KindBox:
		w.X, w.Y = ptr(s.Box.X), ptr(s.Box.Y)
		w.Width, w.Height = ptr(s.Box.Width), ptr(s.Box.Height)
	case KindPolygon, KindPolyline:
		w.Points = s.Points
		if w.Points == nil {
			w.Points = []Point{}
		}
	case KindPoint:
		w.X, w.Y = ptr(s.At.X), ptr(s.At.Y)
	case KindMask:
		w.RLE = s.RLE
		w.Bounds = s.Bounds
	default:
		return nil, fmt.Errorf("marshal shape %q: unknown kind %q", s.ID, s.Kind)
	}

	return json.Marshal(w)
}

// MarshalList encodes l as a JSON array. A nil list encodes as [].
func MarshalList(l List) ([]byte, error) {
	if l == nil {
		l = List{}
	}
	return json.Marshal([]Shape(l))
}

func ptr(v float64) *float64 {
	return &v
}
