package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDimensions is returned while the image's natural size is unknown
	// (still loading, or failed to load).
	ErrNoDimensions = errors.New("image dimensions not available")

	// ErrNoRoom is returned when the container leaves no width for the canvas.
	ErrNoRoom = errors.New("container has no room for canvas")
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Aspect returns Width / Height.
func (s Size) Aspect() float64 {
	return s.Width / s.Height
}

// Container describes the space available to the canvas.
type Container struct {
	// Width is the container's available width in pixels.
	Width float64 `json:"width"`

	// MaxHeight caps the canvas height. Zero means unbounded.
	MaxHeight float64 `json:"max_height"`

	// Padding is subtracted from Width before fitting.
	Padding float64 `json:"padding"`
}

// Fit returns the canvas size for an image of the given natural size inside c,
// preserving the image aspect ratio.
//
// Returns ErrNoDimensions if natural is not a positive size and ErrNoRoom if
// the container is narrower than its padding.
func Fit(natural Size, c Container) (Size, error) {
	if !natural.Valid() {
		return Size{}, fmt.Errorf("fit canvas: %w", ErrNoDimensions)
	}

	width := c.Width - c.Padding
	if width <= 0 {
		return Size{}, fmt.Errorf("fit canvas in %vpx with %vpx padding: %w", c.Width, c.Padding, ErrNoRoom)
	}

	aspect := natural.Aspect()
	height := width / aspect

	if c.MaxHeight > 0 && height > c.MaxHeight {
		height = c.MaxHeight
		width = height * aspect
	}

	return Size{Width: width, Height: height}, nil
}
