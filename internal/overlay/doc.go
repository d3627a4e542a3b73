// Package overlay paints committed and in-progress shapes over an image.
//
// Rendering happens in two steps. Plan turns shapes, the draft and the
// current selection into pixel-space primitives for a given canvas size;
// it is deterministic and cheap, so hosting UIs that draw themselves can use
// the plan directly. Render rasterizes a plan over the base image and
// RenderPNG wraps the result as a base64 PNG. Every raster is held to the
// style's MaxCanvasPixels; larger canvases fail with ErrCanvasTooLarge.
//
// Colors are assigned per label from a fixed palette, so every shape with the
// same label has the same color in every render.
package overlay
