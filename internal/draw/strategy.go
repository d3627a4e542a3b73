package draw

import "github.com/ironsheep/annotation-mcp/internal/shape"

// Draft is an in-progress shape. It is never part of the committed list.
type Draft struct {
	Kind  shape.Kind
	Label string

	// Anchor is the fixed corner of a box draft.
	Anchor shape.Point

	// Cursor is the latest pointer position.
	Cursor shape.Point

	// Points are the placed vertices of a path draft.
	Points []shape.Point

	hasCursor bool
}

// Rect returns the box spanned by the anchor and the cursor.
func (d Draft) Rect() shape.Rect {
	return shape.RectFromCorners(d.Anchor, d.Cursor)
}

// Preview returns the draft as an unvalidated shape for display. Path drafts
// include the cursor as a trailing rubber-band vertex once the pointer has
// moved.
func (d Draft) Preview() shape.Shape {
	s := shape.Shape{ID: "draft", Kind: d.Kind, Label: d.Label}
	switch d.Kind {
	case shape.KindBox:
		s.Box = d.Rect()
	case shape.KindPolygon, shape.KindPolyline:
		s.Points = append(make([]shape.Point, 0, len(d.Points)+1), d.Points...)
		if d.hasCursor && len(d.Points) > 0 {
			s.Points = append(s.Points, d.Cursor)
		}
	case shape.KindPoint:
		s.At = d.Cursor
	}
	return s
}

func (d Draft) clone() Draft {
	c := d
	if d.Points != nil {
		c.Points = append([]shape.Point(nil), d.Points...)
	}
	return c
}

// step tells the session what to do after a strategy handled an event.
type step int

const (
	stepContinue step = iota
	stepCheck
)

// strategy implements one tool's pointer protocol and commit rule.
type strategy interface {
	down(d *Draft, p shape.Point, opts Options) step
	move(d *Draft, p shape.Point)
	up(d *Draft, p shape.Point) step
	complete(d *Draft) step

	// build turns a finished draft into committed geometry. ok is false when
	// the draft fails the tool's validity rule.
	build(d *Draft, opts Options) (s shape.Shape, ok bool)

	// dropInvalid reports whether an invalid draft is discarded at the commit
	// check instead of staying open.
	dropInvalid() bool
}

func strategyFor(k shape.Kind) strategy {
	switch k {
	case shape.KindBox:
		return boxTool{}
	case shape.KindPolygon:
		return pathTool{kind: shape.KindPolygon, closeOnFirst: true}
	case shape.KindPolyline:
		return pathTool{kind: shape.KindPolyline}
	case shape.KindPoint:
		return pointTool{}
	}
	return nil
}

type boxTool struct{}

func (boxTool) down(d *Draft, p shape.Point, _ Options) step {
	d.Anchor, d.Cursor, d.hasCursor = p, p, true
	return stepContinue
}

func (boxTool) move(d *Draft, p shape.Point) {
	d.Cursor = p
}

func (boxTool) up(d *Draft, p shape.Point) step {
	d.Cursor = p
	return stepCheck
}

func (boxTool) complete(*Draft) step { return stepCheck }

func (boxTool) build(d *Draft, opts Options) (shape.Shape, bool) {
	r := shape.ClampRect(d.Rect())
	if r.Area() <= opts.MinBoxArea {
		return shape.Shape{}, false
	}
	return shape.Shape{Kind: shape.KindBox, Box: r}, true
}

func (boxTool) dropInvalid() bool { return true }

type pathTool struct {
	kind         shape.Kind
	closeOnFirst bool
}

func (t pathTool) down(d *Draft, p shape.Point, opts Options) step {
	d.Cursor, d.hasCursor = p, false
	if t.closeOnFirst && len(d.Points) >= t.kind.MinPoints() &&
		shape.Distance(p, d.Points[0]) < opts.CloseRadius {
		return stepCheck
	}
	d.Points = append(d.Points, p)
	return stepContinue
}

func (pathTool) move(d *Draft, p shape.Point) {
	d.Cursor, d.hasCursor = p, true
}

func (pathTool) up(*Draft, shape.Point) step { return stepContinue }

func (pathTool) complete(*Draft) step { return stepCheck }

func (t pathTool) build(d *Draft, opts Options) (shape.Shape, bool) {
	need := t.kind.MinPoints()
	pts := d.Points
	if len(pts) < need {
		return shape.Shape{}, false
	}
	if opts.SimplifyTolerance > 0 {
		if simplified := shape.Simplify(pts, opts.SimplifyTolerance); len(simplified) >= need {
			pts = simplified
		}
	}
	return shape.Shape{Kind: t.kind, Points: append([]shape.Point(nil), pts...)}, true
}

func (pathTool) dropInvalid() bool { return false }

type pointTool struct{}

func (pointTool) down(d *Draft, p shape.Point, _ Options) step {
	d.Cursor, d.hasCursor = p, true
	return stepCheck
}

func (pointTool) move(*Draft, shape.Point) {}

func (pointTool) up(*Draft, shape.Point) step { return stepContinue }

func (pointTool) complete(*Draft) step { return stepCheck }

func (pointTool) build(d *Draft, _ Options) (shape.Shape, bool) {
	return shape.Shape{Kind: shape.KindPoint, At: shape.ClampPoint(d.Cursor)}, true
}

func (pointTool) dropInvalid() bool { return true }
