// Package transform maps annotation geometry between normalized image
// coordinates and the pixels of the currently rendered canvas.
//
// # Canvas Fit
//
// Fit computes the displayed canvas size for an image inside a responsive
// container: the width fills the container (minus padding) and the height
// follows the image aspect ratio; if that height exceeds the container's
// maximum, the height is clamped and the width recomputed from the aspect
// ratio. Fit is a pure function and must be re-run on every container resize
// and image change; Viewport does exactly that and never caches a result.
//
// # Conversions
//
//	pixel      = normalized * extent
//	normalized = clamp(pixel / extent, 0, 1)
//
// Pixel-to-normalized results are always clamped, so a pointer dragged past
// the canvas edge can never produce a coordinate outside the image.
//
// # Scale Convention
//
// The engine uses fractions (1.0 = full image) everywhere. Scale exists only
// for inbound payloads that an integrator has declared to be in percent units
// (100.0 = full image); it is never inferred from the data.
package transform
