package legacy

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/ironsheep/annotation-mcp/internal/shape"
	"github.com/ironsheep/annotation-mcp/internal/transform"
)

// ErrMalformedPayload marks an entry that could not be coerced into a shape.
var ErrMalformedPayload = errors.New("malformed payload entry")

// DefaultConfidence is assigned to entries that carry no confidence.
const DefaultConfidence = 0.5

// Format names the payload layout that was recognized.
type Format string

const (
	FormatNone          Format = "none"
	FormatArray         Format = "array"
	FormatAnnotations   Format = "annotations"
	FormatBoundingBoxes Format = "bounding_boxes"
	FormatObjects       Format = "objects"
)

// Options controls normalization.
type Options struct {
	// Scale declares the unit of normalized coordinates in typed and untyped
	// entries. Legacy objects are always absolute pixels.
	Scale transform.Scale

	// DefaultConfidence replaces a missing confidence. Nil selects the
	// package DefaultConfidence; an explicit zero is kept.
	DefaultConfidence *float64
}

// Confidence returns a pointer to v for Options.DefaultConfidence.
func Confidence(v float64) *float64 {
	return &v
}

// Skipped records one dropped entry.
type Skipped struct {
	Index int   `json:"index"`
	Err   error `json:"-"`
}

// Reason returns the skip reason as text.
func (s Skipped) Reason() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Report is the full outcome of a normalization.
type Report struct {
	Format  Format        `json:"format"`
	Shapes  []shape.Shape `json:"shapes"`
	Skipped []Skipped     `json:"skipped,omitempty"`
}

// Normalize returns the canonical shapes found in payload. natural is the
// image's natural pixel size, needed only for legacy object entries.
//
// The result is never nil. payload is not modified.
func Normalize(payload []byte, natural transform.Size, opts Options) []shape.Shape {
	return NormalizeReport(payload, natural, opts).Shapes
}

// entryKind forces how the entries of a wrapped list are read.
type entryKind int

const (
	entryAuto entryKind = iota
	entryUntyped
	entryObject
)

// NormalizeReport is Normalize plus the recognized format and skip reasons.
func NormalizeReport(payload []byte, natural transform.Size, opts Options) Report {
	report := Report{Format: FormatNone, Shapes: []shape.Shape{}}
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return report
	}

	root := gjson.ParseBytes(payload)
	var list gjson.Result
	forced := entryAuto

	switch {
	case root.IsArray():
		list, report.Format = root, FormatArray
	case root.IsObject():
		for _, c := range []struct {
			key    string
			format Format
			kind   entryKind
		}{
			{"annotations", FormatAnnotations, entryAuto},
			{"bounding_boxes", FormatBoundingBoxes, entryUntyped},
			{"objects", FormatObjects, entryObject},
		} {
			if r := root.Get(c.key); r.IsArray() && len(r.Array()) > 0 {
				list, report.Format, forced = r, c.format, c.kind
				break
			}
		}
	}
	if report.Format == FormatNone {
		return report
	}

	n := normalizer{opts: opts, natural: natural, seen: make(map[string]bool), fallback: DefaultConfidence}
	if opts.DefaultConfidence != nil {
		n.fallback = shape.Clamp01(*opts.DefaultConfidence)
	}

	for i, entry := range list.Array() {
		s, err := n.entry(i, entry, forced)
		if err == nil {
			err = n.claim(s)
		}
		if err != nil {
			report.Skipped = append(report.Skipped, Skipped{Index: i, Err: err})
			continue
		}
		report.Shapes = append(report.Shapes, s)
	}
	return report
}

type normalizer struct {
	opts     Options
	natural  transform.Size
	seen     map[string]bool
	fallback float64
}

func (n *normalizer) entry(i int, r gjson.Result, forced entryKind) (shape.Shape, error) {
	if !r.IsObject() {
		return shape.Shape{}, fmt.Errorf("entry %d: %w: not an object", i, ErrMalformedPayload)
	}

	kind := forced
	if kind == entryAuto {
		switch {
		case r.Get("type").Exists():
			return n.typed(i, r)
		case r.Get("bbox").IsArray():
			kind = entryObject
		default:
			kind = entryUntyped
		}
	}

	if kind == entryObject {
		return n.object(i, r)
	}
	return n.untyped(i, r)
}

// claim validates s and reserves its id.
func (n *normalizer) claim(s shape.Shape) error {
	if err := shape.Validate(s); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if n.seen[s.ID] {
		return fmt.Errorf("%w: duplicate id %q", ErrMalformedPayload, s.ID)
	}
	n.seen[s.ID] = true
	return nil
}

func (n *normalizer) typed(i int, r gjson.Result) (shape.Shape, error) {
	kind, err := shape.ParseKind(r.Get("type").String())
	if err != nil {
		return shape.Shape{}, fmt.Errorf("entry %d: %w: %v", i, ErrMalformedPayload, err)
	}

	s := shape.Shape{
		ID:         n.id(r, kind, i),
		Kind:       kind,
		Label:      r.Get("label").String(),
		Confidence: n.confidence(r),
		Text:       r.Get("text").String(),
	}

	switch kind {
	case shape.KindBox:
		box, err := n.rect(r)
		if err != nil {
			return shape.Shape{}, fmt.Errorf("entry %d: %w", i, err)
		}
		s.Box = box
	case shape.KindPolygon, shape.KindPolyline:
		pts, err := n.points(r.Get("points"))
		if err != nil {
			return shape.Shape{}, fmt.Errorf("entry %d: %w", i, err)
		}
		if len(pts) < kind.MinPoints() {
			return shape.Shape{}, fmt.Errorf("entry %d: %w: %s with %d points", i, ErrMalformedPayload, kind, len(pts))
		}
		s.Points = pts
	case shape.KindPoint:
		p, err := n.point(r)
		if err != nil {
			return shape.Shape{}, fmt.Errorf("entry %d: %w", i, err)
		}
		s.At = p
	case shape.KindMask:
		rle := r.Get("rle")
		if rle.Type != gjson.String || rle.String() == "" {
			return shape.Shape{}, fmt.Errorf("entry %d: %w: mask without rle", i, ErrMalformedPayload)
		}
		s.RLE = rle.String()
		if b := r.Get("bounds"); b.Exists() && b.Type != gjson.Null {
			bounds, err := n.rect(b)
			if err != nil {
				return shape.Shape{}, fmt.Errorf("entry %d: bounds: %w", i, err)
			}
			s.Bounds = &bounds
		}
	}
	return s, nil
}

func (n *normalizer) untyped(i int, r gjson.Result) (shape.Shape, error) {
	box, err := n.rect(r)
	if err != nil {
		return shape.Shape{}, fmt.Errorf("entry %d: %w", i, err)
	}
	s := shape.NewBox(n.id(r, shape.KindBox, i), r.Get("label").String(), n.confidence(r), box)
	s.Text = r.Get("text").String()
	return s, nil
}

func (n *normalizer) object(i int, r gjson.Result) (shape.Shape, error) {
	if !n.natural.Valid() {
		return shape.Shape{}, fmt.Errorf("entry %d: %w: pixel bbox needs image dimensions", i, ErrMalformedPayload)
	}

	raw := r.Get("bbox").Array()
	if len(raw) != 4 {
		return shape.Shape{}, fmt.Errorf("entry %d: %w: bbox has %d elements, want 4", i, ErrMalformedPayload, len(raw))
	}
	var v [4]float64
	for j, e := range raw {
		if e.Type != gjson.Number {
			return shape.Shape{}, fmt.Errorf("entry %d: %w: bbox[%d] is not a number", i, ErrMalformedPayload, j)
		}
		v[j] = e.Float()
	}
	if v[2] < 0 || v[3] < 0 {
		return shape.Shape{}, fmt.Errorf("entry %d: %w: negative bbox size", i, ErrMalformedPayload)
	}

	box := shape.ClampRect(shape.Rect{
		X:      v[0] / n.natural.Width,
		Y:      v[1] / n.natural.Height,
		Width:  v[2] / n.natural.Width,
		Height: v[3] / n.natural.Height,
	})
	id := fmt.Sprintf("%s_%d", shape.KindBox, i)
	return shape.NewBox(id, r.Get("class").String(), n.confidence(r), box), nil
}

func (n *normalizer) id(r gjson.Result, kind shape.Kind, i int) string {
	if v := r.Get("id"); v.Exists() && v.String() != "" {
		return v.String()
	}
	return fmt.Sprintf("%s_%d", kind, i)
}

func (n *normalizer) confidence(r gjson.Result) float64 {
	v := r.Get("confidence")
	if v.Type != gjson.Number {
		return n.fallback
	}
	return shape.Clamp01(v.Float())
}

func (n *normalizer) scaled(r gjson.Result, key string) (float64, error) {
	v := r.Get(key)
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %q missing or not a number", ErrMalformedPayload, key)
	}
	return transform.FromScale(v.Float(), n.opts.Scale), nil
}

func (n *normalizer) rect(r gjson.Result) (shape.Rect, error) {
	var vals [4]float64
	for j, key := range []string{"x", "y", "width", "height"} {
		v, err := n.scaled(r, key)
		if err != nil {
			return shape.Rect{}, err
		}
		vals[j] = v
	}
	if vals[2] < 0 || vals[3] < 0 {
		return shape.Rect{}, fmt.Errorf("%w: negative width or height", ErrMalformedPayload)
	}
	return shape.ClampRect(shape.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}), nil
}

func (n *normalizer) point(r gjson.Result) (shape.Point, error) {
	x, err := n.scaled(r, "x")
	if err != nil {
		return shape.Point{}, err
	}
	y, err := n.scaled(r, "y")
	if err != nil {
		return shape.Point{}, err
	}
	return shape.ClampPoint(shape.Point{X: x, Y: y}), nil
}

func (n *normalizer) points(r gjson.Result) ([]shape.Point, error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: points missing or not an array", ErrMalformedPayload)
	}
	raw := r.Array()
	pts := make([]shape.Point, 0, len(raw))
	for j, e := range raw {
		p, err := n.point(e)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", j, err)
		}
		pts = append(pts, p)
	}
	return pts, nil
}
