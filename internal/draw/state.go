package draw

import (
	"errors"

	"github.com/ironsheep/annotation-mcp/internal/shape"
)

var (
	// ErrNoLabel is returned by operations that need an active label.
	ErrNoLabel = errors.New("no active label")

	// ErrUnknownTool is returned by SetTool for an unknown shape kind.
	ErrUnknownTool = errors.New("unknown tool")
)

// State is the session's drawing state.
type State int

const (
	Idle State = iota
	ReadyToDraw
	Drafting
)

// String returns the state name as used in tool results.
func (s State) String() string {
	switch s {
	case ReadyToDraw:
		return "ready"
	case Drafting:
		return "drafting"
	}
	return "idle"
}

// Outcome reports the effect of one session call.
type Outcome struct {
	// State is the session state after the call.
	State State `json:"state"`

	// Committed is the shape appended to the list, if any.
	Committed *shape.Shape `json:"committed,omitempty"`

	// Discarded is set when an in-progress draft was dropped.
	Discarded bool `json:"discarded"`

	// Changed is set when the committed list was replaced.
	Changed bool `json:"changed"`
}

// Options tunes the commit rules.
type Options struct {
	// MinBoxArea is the normalized area a box must exceed to be committed.
	MinBoxArea float64

	// CloseRadius is the normalized distance from the first polygon vertex
	// within which a click closes the polygon.
	CloseRadius float64

	// SimplifyTolerance is the Douglas-Peucker tolerance applied to paths on
	// commit. Zero disables simplification.
	SimplifyTolerance float64

	// DefaultConfidence is given to every drawn shape.
	DefaultConfidence float64
}

// DefaultOptions returns the stock commit rules.
func DefaultOptions() Options {
	return Options{
		MinBoxArea:        0.001,
		CloseRadius:       0.03,
		SimplifyTolerance: 0.005,
		DefaultConfidence: 0.5,
	}
}
