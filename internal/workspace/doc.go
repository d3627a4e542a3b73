// Package workspace holds the state of one annotation widget: the image it
// annotates, the viewport that maps pointer pixels to image fractions, the
// draw session that owns the committed shapes, and the display selection.
//
// Workspaces are created by a Registry, which hands out opaque ids so that
// several images can be annotated side by side without sharing any state.
// The Registry is safe for concurrent use; a single Workspace is not and is
// expected to be driven by one request loop.
//
// Pointer input arrives in canvas pixels. It is converted to clamped image
// fractions before it reaches the session, so everything below this package
// only ever sees normalized coordinates.
package workspace
