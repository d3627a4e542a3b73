// Package draw assembles shapes from pointer input.
//
// A Session owns the committed shape list of one image together with the
// active label, the active tool and at most one in-progress draft. Pointer
// positions arrive already normalized (see transform.Viewport.ToNormalized).
//
// The session moves between three states:
//
//	Idle         no label selected; pointer input is ignored
//	ReadyToDraw  a label is selected and no draft exists
//	Drafting     a draft is being built by the active tool
//
// Each tool is a strategy that decides when its draft is complete and whether
// the draft is valid. A valid draft is committed to the list with a fresh id
// and the session returns to ReadyToDraw. An invalid box or point is dropped
// silently; an invalid polygon or polyline stays in Drafting until more
// vertices are added or the draft is reset.
//
// Masks are never drawn with the pointer. An encoded mask produced elsewhere
// is committed with AttachMask.
//
// A Session is not safe for concurrent use.
package draw
