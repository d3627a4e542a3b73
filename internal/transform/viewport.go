package transform

import (
	"fmt"

	"github.com/ironsheep/annotation-mcp/internal/shape"
)

// ImageState tracks the asynchronous image load a canvas depends on.
type ImageState int

const (
	ImagePending ImageState = iota
	ImageLoaded
	ImageFailed
)

// String returns a lowercase state name.
func (s ImageState) String() string {
	switch s {
	case ImageLoaded:
		return "loaded"
	case ImageFailed:
		return "failed"
	}
	return "pending"
}

// Viewport couples an image's natural size with the container it is shown
// in. Canvas recomputes the fit from the current inputs on every call, so
// repeated resizes never accumulate drift.
type Viewport struct {
	natural   Size
	state     ImageState
	err       error
	container Container
}

// NewViewport returns a viewport waiting for its image.
func NewViewport(c Container) *Viewport {
	return &Viewport{container: c}
}

// SetImage records the image's natural size once it is known. A non-positive
// size marks the image as failed.
func (v *Viewport) SetImage(natural Size) error {
	if !natural.Valid() {
		err := fmt.Errorf("natural size %vx%v: %w", natural.Width, natural.Height, ErrNoDimensions)
		v.FailImage(err)
		return err
	}
	v.natural = natural
	v.state = ImageLoaded
	v.err = nil
	return nil
}

// FailImage marks the image as unavailable. The viewport then refuses to
// produce a canvas until SetImage succeeds.
func (v *Viewport) FailImage(err error) {
	v.natural = Size{}
	v.state = ImageFailed
	v.err = err
}

// Resize replaces the container.
func (v *Viewport) Resize(c Container) {
	v.container = c
}

// State returns the image load state.
func (v *Viewport) State() ImageState {
	return v.state
}

// Err returns the load failure, if any.
func (v *Viewport) Err() error {
	return v.err
}

// Natural returns the image's natural size (zero until loaded).
func (v *Viewport) Natural() Size {
	return v.natural
}

// Container returns the current container.
func (v *Viewport) Container() Container {
	return v.container
}

// FitCanvas returns the current canvas size. While the image is not loaded
// it returns ErrNoDimensions, carrying the load failure if there is one;
// otherwise it returns whatever Fit returns.
func (v *Viewport) FitCanvas() (Size, error) {
	if v.state != ImageLoaded {
		if v.err != nil {
			return Size{}, fmt.Errorf("%w: %v", ErrNoDimensions, v.err)
		}
		return Size{}, ErrNoDimensions
	}
	return Fit(v.natural, v.container)
}

// Canvas is FitCanvas reduced to a flag: ok is false while the image is not
// loaded or the container has no room.
func (v *Viewport) Canvas() (size Size, ok bool) {
	size, err := v.FitCanvas()
	if err != nil {
		return Size{}, false
	}
	return size, true
}

// ToNormalized converts a canvas pointer position into a clamped image
// point. ok is false when no canvas is available.
func (v *Viewport) ToNormalized(p PixelPoint) (shape.Point, bool) {
	canvas, ok := v.Canvas()
	if !ok {
		return shape.Point{}, false
	}
	return PointToNormalized(p, canvas), true
}
