// Package shape holds the canonical in-memory model of spatial annotations.
//
// An annotation is one of five variants, discriminated by Kind:
//   - KindBox: axis-aligned rectangle (Box), origin at the top-left corner
//   - KindPolygon: closed region, at least 3 vertices (Points)
//   - KindPolyline: open path, at least 2 vertices (Points)
//   - KindPoint: single landmark (At)
//   - KindMask: opaque run-length-encoded payload (RLE) with an optional
//     bounding rectangle (Bounds) used for display
//
// # Coordinate System
//
// All geometry is normalized: every coordinate is a fraction of the image
// width or height in the closed interval [0, 1]. (0,0) is the top-left corner
// of the image, X grows rightward and Y grows downward. Conversion to and from
// rendered pixels lives in the transform package.
//
// # Immutability
//
// List operations (Add, Update, Remove) never modify the receiver. They return
// a new List whose shapes share no point slices with the input, so a caller
// can keep the previous list for comparison or for an external undo stack.
//
// # Errors
//
// Operations report ErrInvalidGeometry when a shape breaks its variant's
// validity rule and ErrNotFound when an id is absent. Both are wrapped with
// context; test them with errors.Is.
package shape
