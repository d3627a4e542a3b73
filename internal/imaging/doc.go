// Package imaging is the boundary between the annotation engine and actual
// image data.
//
// The engine itself never needs pixels: shapes are stored in normalized
// coordinates and only the image's natural size is required to fit a canvas
// or to convert legacy pixel payloads. This package supplies that size, the
// decoded image for rendering overlays, and full-resolution crops of shapes
// for review.
//
// # Sources
//
// Images are addressed by a source string:
//   - a file path
//   - an http:// or https:// URL, fetched with bounded retries
//   - a data: URI with a base64 payload
//
// Supported formats are PNG, JPEG, GIF, BMP and WebP.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner. For regions,
// (x1,y1) is inclusive and (x2,y2) is exclusive.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. CropShape is stateless.
//
// # Error Handling
//
// Every load failure wraps ErrImageLoadFailure so callers can fall back to a
// placeholder with errors.Is.
package imaging
