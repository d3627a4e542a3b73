package draw

import (
	"fmt"

	"github.com/ironsheep/annotation-mcp/internal/shape"
)

// Session is the drawing and editing state of one annotated image.
type Session struct {
	opts     Options
	state    State
	label    string
	tool     shape.Kind
	draft    *Draft
	shapes   shape.List
	ids      *IDGenerator
	onChange func(shape.List)
}

// NewSession returns an Idle session over an existing list. The list's ids are
// reserved so drawn shapes never collide with loaded ones. The initial tool
// is the bounding box.
func NewSession(shapes shape.List, opts Options) *Session {
	return &Session{
		opts:   opts,
		tool:   shape.KindBox,
		shapes: shapes,
		ids:    NewIDGenerator(shapes.IDs()...),
	}
}

// OnChange registers fn to be called with every new committed list.
func (s *Session) OnChange(fn func(shape.List)) {
	s.onChange = fn
}

// State returns the current drawing state.
func (s *Session) State() State { return s.state }

// Label returns the active label, empty when Idle.
func (s *Session) Label() string { return s.label }

// Tool returns the active tool.
func (s *Session) Tool() shape.Kind { return s.tool }

// Options returns the session's commit rules.
func (s *Session) Options() Options { return s.opts }

// Shapes returns the committed list. The caller must not modify it.
func (s *Session) Shapes() shape.List { return s.shapes }

// Draft returns a copy of the in-progress draft.
func (s *Session) Draft() (Draft, bool) {
	if s.draft == nil {
		return Draft{}, false
	}
	return s.draft.clone(), true
}

// SelectLabel makes label the active label. An Idle session becomes
// ReadyToDraw; an open draft is kept and commits under the new label.
// Selecting the empty label is the same as DeselectLabel.
func (s *Session) SelectLabel(label string) Outcome {
	if label == "" {
		return s.DeselectLabel()
	}
	s.label = label
	if s.draft != nil {
		s.draft.Label = label
	}
	if s.state == Idle {
		s.state = ReadyToDraw
	}
	return s.outcome(Outcome{})
}

// DeselectLabel clears the active label and drops any draft.
func (s *Session) DeselectLabel() Outcome {
	discarded := s.dropDraft()
	s.label = ""
	s.state = Idle
	return s.outcome(Outcome{Discarded: discarded})
}

// SwitchTask drops any draft, clears the label and replaces the committed list
// with next. Ids seen before the switch stay reserved.
func (s *Session) SwitchTask(next shape.List) Outcome {
	discarded := s.dropDraft()
	s.label = ""
	s.state = Idle
	for _, id := range next.IDs() {
		s.ids.Observe(id)
	}
	s.replace(next)
	return s.outcome(Outcome{Discarded: discarded, Changed: true})
}

// SetTool changes the active tool. Any draft is dropped; the label is kept.
func (s *Session) SetTool(k shape.Kind) (Outcome, error) {
	if !k.Valid() {
		return s.outcome(Outcome{}), fmt.Errorf("%w: %q", ErrUnknownTool, k)
	}
	discarded := s.dropDraft()
	s.tool = k
	s.settle()
	return s.outcome(Outcome{Discarded: discarded}), nil
}

// PointerDown handles a press at p.
func (s *Session) PointerDown(p shape.Point) Outcome {
	if s.state == Idle {
		return s.outcome(Outcome{})
	}
	st := strategyFor(s.tool)
	if st == nil {
		return s.outcome(Outcome{})
	}
	if s.draft == nil {
		s.draft = &Draft{Kind: s.tool, Label: s.label}
		s.state = Drafting
	}
	if st.down(s.draft, shape.ClampPoint(p), s.opts) == stepCheck {
		return s.check(st)
	}
	return s.outcome(Outcome{})
}

// PointerMove handles pointer motion. It only affects an open draft.
func (s *Session) PointerMove(p shape.Point) Outcome {
	if s.state == Drafting {
		strategyFor(s.tool).move(s.draft, shape.ClampPoint(p))
	}
	return s.outcome(Outcome{})
}

// PointerUp handles a release at p.
func (s *Session) PointerUp(p shape.Point) Outcome {
	if s.state != Drafting {
		return s.outcome(Outcome{})
	}
	st := strategyFor(s.tool)
	if st.up(s.draft, shape.ClampPoint(p)) == stepCheck {
		return s.check(st)
	}
	return s.outcome(Outcome{})
}

// Complete finishes a path draft. A polygon with fewer than three vertices
// (or a polyline with fewer than two) stays open.
func (s *Session) Complete() Outcome {
	if s.state != Drafting {
		return s.outcome(Outcome{})
	}
	st := strategyFor(s.tool)
	if st.complete(s.draft) == stepCheck {
		return s.check(st)
	}
	return s.outcome(Outcome{})
}

// Reset drops the open draft and returns to ReadyToDraw.
func (s *Session) Reset() Outcome {
	discarded := s.dropDraft()
	s.settle()
	return s.outcome(Outcome{Discarded: discarded})
}

// AttachMask commits an externally encoded mask under the active label. The
// draft, if any, is left alone.
func (s *Session) AttachMask(rle string, bounds *shape.Rect) (Outcome, error) {
	if s.label == "" {
		return s.outcome(Outcome{}), ErrNoLabel
	}
	m := shape.NewMask(s.ids.Next(shape.KindMask), s.label, s.opts.DefaultConfidence, rle, bounds)
	return s.commit(m)
}

// check runs the active tool's validity rule on the finished draft.
func (s *Session) check(st strategy) Outcome {
	built, ok := st.build(s.draft, s.opts)
	if !ok {
		if st.dropInvalid() {
			s.draft = nil
			s.state = ReadyToDraw
			return s.outcome(Outcome{Discarded: true})
		}
		return s.outcome(Outcome{})
	}

	built.ID = s.ids.Next(built.Kind)
	built.Label = s.label
	built.Confidence = s.opts.DefaultConfidence

	s.draft = nil
	s.state = ReadyToDraw
	o, err := s.commit(built)
	if err != nil {
		// Built geometry is clamped; only a bad DefaultConfidence gets here.
		return s.outcome(Outcome{Discarded: true})
	}
	return o
}

func (s *Session) commit(sh shape.Shape) (Outcome, error) {
	next, err := s.shapes.Add(sh)
	if err != nil {
		return s.outcome(Outcome{}), err
	}
	s.replace(next)
	committed := sh.Clone()
	return s.outcome(Outcome{Committed: &committed, Changed: true}), nil
}

func (s *Session) replace(next shape.List) {
	s.shapes = next
	if s.onChange != nil {
		s.onChange(next)
	}
}

func (s *Session) dropDraft() bool {
	had := s.draft != nil
	s.draft = nil
	return had
}

// settle puts a draft-less session into the state its label implies.
func (s *Session) settle() {
	if s.label == "" {
		s.state = Idle
	} else {
		s.state = ReadyToDraw
	}
}

func (s *Session) outcome(o Outcome) Outcome {
	o.State = s.state
	return o
}
