package overlay

import "github.com/ironsheep/annotation-mcp/internal/shape"

// Selection holds the id of at most one selected shape. It is display state
// only and is never stored with the shapes.
type Selection struct {
	id string
}

// Select makes id the only selected shape.
func (s *Selection) Select(id string) {
	s.id = id
}

// Clear removes the selection.
func (s *Selection) Clear() {
	s.id = ""
}

// Selected returns the selected id.
func (s *Selection) Selected() (string, bool) {
	return s.id, s.id != ""
}

// Is reports whether id is selected.
func (s *Selection) Is(id string) bool {
	return id != "" && s.id == id
}

// Forget clears the selection if it points at id. Call it when a shape is
// removed.
func (s *Selection) Forget(id string) {
	if s.id == id {
		s.id = ""
	}
}

// SelectAt selects the topmost shape under p and returns its id. A miss
// clears the selection. Masks without bounds are not displayed and cannot
// be hit.
func (s *Selection) SelectAt(shapes shape.List, p shape.Point, tolerance float64) (string, bool) {
	for i := len(shapes) - 1; i >= 0; i-- {
		sh := shapes[i]
		if sh.Kind == shape.KindMask && sh.Bounds == nil {
			continue
		}
		if shape.Contains(sh, p, tolerance) {
			s.id = sh.ID
			return sh.ID, true
		}
	}
	s.id = ""
	return "", false
}
