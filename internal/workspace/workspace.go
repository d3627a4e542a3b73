package workspace

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/annotation-mcp/internal/draw"
	"github.com/ironsheep/annotation-mcp/internal/imaging"
	"github.com/ironsheep/annotation-mcp/internal/legacy"
	"github.com/ironsheep/annotation-mcp/internal/overlay"
	"github.com/ironsheep/annotation-mcp/internal/shape"
	"github.com/ironsheep/annotation-mcp/internal/transform"
)

var (
	// ErrNoImage is returned by operations that need decoded pixels when the
	// workspace has none.
	ErrNoImage = errors.New("workspace has no image")

	// ErrNaturalFixed is returned when a natural size is supplied for a
	// workspace whose image was decoded.
	ErrNaturalFixed = errors.New("natural size is fixed by the loaded image")

	// ErrUnknownAction is returned for a pointer action other than down,
	// move or up.
	ErrUnknownAction = errors.New("unknown pointer action")
)

// PointerAction is the phase of a pointer event.
type PointerAction string

const (
	PointerDown PointerAction = "down"
	PointerMove PointerAction = "move"
	PointerUp   PointerAction = "up"
)

// Workspace is one annotated image.
type Workspace struct {
	ID       string
	ImageURL string

	Viewport  *transform.Viewport
	Session   *draw.Session
	Selection overlay.Selection

	// Image is the decoded image, nil when it could not be loaded.
	Image image.Image

	// Report describes how the opening payload was normalized.
	Report legacy.Report
}

// Canvas returns the current canvas size.
func (w *Workspace) Canvas() (transform.Size, error) {
	return w.Viewport.FitCanvas()
}

// SetNatural supplies the image's natural size after the workspace was
// opened, bringing a workspace whose image failed to load back to a usable
// canvas. It returns ErrNaturalFixed when a decoded image already fixes the
// size.
func (w *Workspace) SetNatural(natural transform.Size) (transform.Size, error) {
	if w.Image != nil {
		return transform.Size{}, ErrNaturalFixed
	}
	if err := w.Viewport.SetImage(natural); err != nil {
		return transform.Size{}, err
	}
	return w.Canvas()
}

// Resize replaces the container and returns the new canvas size. Shapes are
// unaffected; only their pixel projection changes.
func (w *Workspace) Resize(c transform.Container) (transform.Size, error) {
	w.Viewport.Resize(c)
	return w.Canvas()
}

// Pointer feeds a canvas pixel event into the draw session.
func (w *Workspace) Pointer(action PointerAction, at transform.PixelPoint) (draw.Outcome, error) {
	canvas, err := w.Canvas()
	if err != nil {
		return draw.Outcome{State: w.Session.State()}, err
	}
	p := transform.PointToNormalized(at, canvas)

	switch action {
	case PointerDown:
		return w.Session.PointerDown(p), nil
	case PointerMove:
		return w.Session.PointerMove(p), nil
	case PointerUp:
		return w.Session.PointerUp(p), nil
	}
	return draw.Outcome{State: w.Session.State()}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// SwitchTask replaces the committed shapes with a newly normalized payload.
// The draft, label and selection are cleared.
func (w *Workspace) SwitchTask(payload []byte, opts legacy.Options) (draw.Outcome, legacy.Report) {
	report := legacy.NormalizeReport(payload, w.Viewport.Natural(), opts)
	w.Report = report
	w.Selection.Clear()
	return w.Session.SwitchTask(shape.List(report.Shapes)), report
}

// Select selects a shape by id.
func (w *Workspace) Select(id string) error {
	if _, ok := w.Session.Shapes().Get(id); !ok {
		return fmt.Errorf("%w: %q", shape.ErrNotFound, id)
	}
	w.Selection.Select(id)
	return nil
}

// SelectAt selects the topmost shape under a canvas pixel. tolerance is a
// normalized distance used for points and polylines.
func (w *Workspace) SelectAt(at transform.PixelPoint, tolerance float64) (string, bool, error) {
	canvas, err := w.Canvas()
	if err != nil {
		return "", false, err
	}
	id, ok := w.Selection.SelectAt(w.Session.Shapes(), transform.PointToNormalized(at, canvas), tolerance)
	return id, ok, nil
}

// Remove deletes a shape and drops it from the selection.
func (w *Workspace) Remove(id string) (draw.Outcome, error) {
	o, err := w.Session.Remove(id)
	if err != nil {
		return o, err
	}
	w.Selection.Forget(id)
	return o, nil
}

// DraftShape returns the preview of the open draft, if any.
func (w *Workspace) DraftShape() *shape.Shape {
	d, ok := w.Session.Draft()
	if !ok {
		return nil
	}
	s := d.Preview()
	return &s
}

// Export returns the committed shapes in canonical JSON.
func (w *Workspace) Export() ([]byte, error) {
	return shape.MarshalList(w.Session.Shapes())
}

// Plan lays out the committed shapes and the draft for the current canvas.
func (w *Workspace) Plan(r *overlay.Renderer) ([]overlay.Primitive, transform.Size, error) {
	canvas, err := w.Canvas()
	if err != nil {
		return nil, transform.Size{}, err
	}
	return r.Plan(w.Session.Shapes(), w.DraftShape(), canvas, &w.Selection), canvas, nil
}

// Render draws the overlay on the image. A workspace without a canvas
// renders the container placeholder instead.
func (w *Workspace) Render(r *overlay.Renderer) (*overlay.RenderResult, error) {
	plan, canvas, err := w.Plan(r)
	if err != nil {
		if errors.Is(err, transform.ErrNoDimensions) {
			return r.PlaceholderPNG(w.Viewport.Container())
		}
		return nil, err
	}
	return r.RenderPNG(w.Image, canvas, plan)
}

// Crop cuts a shape out of the full-resolution image.
func (w *Workspace) Crop(id string, padding, scale float64) (*imaging.CropResult, error) {
	s, ok := w.Session.Shapes().Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", shape.ErrNotFound, id)
	}
	if w.Image == nil {
		return nil, ErrNoImage
	}
	return imaging.CropShape(w.Image, s, padding, scale)
}
