package draw

import "github.com/ironsheep/annotation-mcp/internal/shape"

// UpdateLabel reassigns the label of a committed shape.
func (s *Session) UpdateLabel(id, label string) (Outcome, error) {
	return s.Update(id, shape.Patch{Label: &label})
}

// UpdateText sets the transcription of a committed shape.
func (s *Session) UpdateText(id, text string) (Outcome, error) {
	return s.Update(id, shape.Patch{Text: &text})
}

// UpdateConfidence sets the confidence of a committed shape.
func (s *Session) UpdateConfidence(id string, confidence float64) (Outcome, error) {
	return s.Update(id, shape.Patch{Confidence: &confidence})
}

// Update applies p to the committed shape with the given id.
func (s *Session) Update(id string, p shape.Patch) (Outcome, error) {
	return s.edit(func(l shape.List) (shape.List, error) { return l.Update(id, p) })
}

// MoveVertex moves one vertex of a path shape, or a point shape's location.
func (s *Session) MoveVertex(id string, index int, p shape.Point) (Outcome, error) {
	return s.edit(func(l shape.List) (shape.List, error) { return l.MoveVertex(id, index, p) })
}

// Remove deletes a committed shape. Its id stays reserved.
func (s *Session) Remove(id string) (Outcome, error) {
	return s.edit(func(l shape.List) (shape.List, error) { return l.Remove(id) })
}

func (s *Session) edit(fn func(shape.List) (shape.List, error)) (Outcome, error) {
	next, err := fn(s.shapes)
	if err != nil {
		return s.outcome(Outcome{}), err
	}
	s.replace(next)
	return s.outcome(Outcome{Changed: true}), nil
}
