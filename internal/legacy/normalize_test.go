package legacy

import (
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/annotation-mcp/internal/shape"
	"github.com/ironsheep/annotation-mcp/internal/transform"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestNormalize_LegacyObjects(t *testing.T) {
	payload := []byte(`{"objects":[{"class":"Car","bbox":[100,50,40,30],"confidence":0.9}]}`)

	got := Normalize(payload, transform.Size{Width: 1000, Height: 500}, Options{})
	if len(got) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(got))
	}

	s := got[0]
	if s.ID != "bbox_0" || s.Kind != shape.KindBox || s.Label != "Car" {
		t.Errorf("unexpected identity: id=%q kind=%q label=%q", s.ID, s.Kind, s.Label)
	}
	if !near(s.Box.X, 0.1) || !near(s.Box.Y, 0.1) || !near(s.Box.Width, 0.04) || !near(s.Box.Height, 0.06) {
		t.Errorf("box: got %+v, want {0.1 0.1 0.04 0.06}", s.Box)
	}
	if s.Confidence != 0.9 {
		t.Errorf("confidence: got %v, want 0.9", s.Confidence)
	}
}

func TestNormalize_LegacyObjectsNeedDimensions(t *testing.T) {
	payload := []byte(`{"objects":[{"class":"Car","bbox":[100,50,40,30]}]}`)

	report := NormalizeReport(payload, transform.Size{}, Options{})
	if len(report.Shapes) != 0 {
		t.Fatalf("expected no shapes without dimensions, got %d", len(report.Shapes))
	}
	if len(report.Skipped) != 1 || !errors.Is(report.Skipped[0].Err, ErrMalformedPayload) {
		t.Errorf("expected one ErrMalformedPayload skip, got %+v", report.Skipped)
	}
}

func TestNormalize_Empty(t *testing.T) {
	for _, payload := range []string{"", "null", "{", `{"foo":1}`, `"text"`, `42`} {
		got := Normalize([]byte(payload), transform.Size{Width: 10, Height: 10}, Options{})
		if got == nil || len(got) != 0 {
			t.Errorf("Normalize(%q): got %v, want empty non-nil list", payload, got)
		}
	}
}

func TestNormalize_Typed(t *testing.T) {
	payload := []byte(`{"annotations":[
		{"id":"a","type":"bbox","label":"car","x":0.1,"y":0.2,"width":0.3,"height":0.4,"confidence":0.8},
		{"id":"b","type":"polygon","label":"road","points":[{"x":0,"y":0},{"x":1,"y":0},{"x":1,"y":1}]},
		{"id":"c","type":"polyline","points":[{"x":0,"y":0},{"x":0.5,"y":0.5}]},
		{"id":"d","type":"point","label":"eye","x":0.5,"y":0.25},
		{"id":"e","type":"mask","rle":"1,2,3","bounds":{"x":0,"y":0,"width":0.5,"height":0.5}}
	]}`)

	report := NormalizeReport(payload, transform.Size{}, Options{})
	if report.Format != FormatAnnotations {
		t.Errorf("format: got %q, want %q", report.Format, FormatAnnotations)
	}
	if len(report.Skipped) != 0 {
		t.Fatalf("unexpected skips: %+v", report.Skipped)
	}

	wantKinds := []shape.Kind{shape.KindBox, shape.KindPolygon, shape.KindPolyline, shape.KindPoint, shape.KindMask}
	if len(report.Shapes) != len(wantKinds) {
		t.Fatalf("expected %d shapes, got %d", len(wantKinds), len(report.Shapes))
	}
	for i, k := range wantKinds {
		if report.Shapes[i].Kind != k {
			t.Errorf("shape %d: kind %q, want %q", i, report.Shapes[i].Kind, k)
		}
		if err := shape.Validate(report.Shapes[i]); err != nil {
			t.Errorf("shape %d invalid: %v", i, err)
		}
	}

	if c := report.Shapes[1].Confidence; c != DefaultConfidence {
		t.Errorf("missing confidence: got %v, want %v", c, DefaultConfidence)
	}
	if b := report.Shapes[4].Bounds; b == nil || b.Width != 0.5 {
		t.Errorf("mask bounds: got %+v", b)
	}
}

func TestNormalize_SkipsMalformed(t *testing.T) {
	payload := []byte(`[
		{"type":"polygon","points":[{"x":0,"y":0},{"x":1,"y":1}]},
		{"type":"bbox","x":0.1,"y":0.1,"width":0.2},
		{"type":"hexagon","x":0,"y":0},
		{"type":"mask"},
		"not an object",
		{"type":"point","x":0.3,"y":0.3},
		{"type":"bbox","x":0.1,"y":0.1,"width":-0.2,"height":0.1}
	]`)

	report := NormalizeReport(payload, transform.Size{}, Options{})
	if len(report.Shapes) != 1 || report.Shapes[0].Kind != shape.KindPoint {
		t.Fatalf("expected only the point to survive, got %+v", report.Shapes)
	}
	if report.Shapes[0].ID != "point_5" {
		t.Errorf("synthetic id: got %q, want point_5", report.Shapes[0].ID)
	}
	if len(report.Skipped) != 6 {
		t.Errorf("expected 6 skipped entries, got %d", len(report.Skipped))
	}
	for _, s := range report.Skipped {
		if !errors.Is(s.Err, ErrMalformedPayload) {
			t.Errorf("entry %d: expected ErrMalformedPayload, got %v", s.Index, s.Err)
		}
		if s.Reason() == "" {
			t.Errorf("entry %d: empty reason", s.Index)
		}
	}
}

func TestNormalize_DefaultConfidence(t *testing.T) {
	payload := []byte(`[{"type":"point","id":"p","label":"eye","x":0.5,"y":0.5}]`)

	tests := []struct {
		name string
		opts Options
		want float64
	}{
		{"unset", Options{}, DefaultConfidence},
		{"explicit zero", Options{DefaultConfidence: Confidence(0)}, 0},
		{"explicit one", Options{DefaultConfidence: Confidence(1)}, 1},
		{"clamped", Options{DefaultConfidence: Confidence(3)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(payload, transform.Size{}, tt.opts)
			if len(got) != 1 {
				t.Fatalf("expected 1 shape, got %d", len(got))
			}
			if got[0].Confidence != tt.want {
				t.Errorf("confidence: got %v, want %v", got[0].Confidence, tt.want)
			}
		})
	}
}

func TestNormalize_UntypedBoxes(t *testing.T) {
	payload := []byte(`{"bounding_boxes":[
		{"x":0.1,"y":0.1,"width":0.2,"height":0.2,"label":"dog","text":"Rex"},
		{"x":0.9,"y":0.9,"width":0.5,"height":0.5,"label":"cat","confidence":1.7}
	]}`)

	got := Normalize(payload, transform.Size{}, Options{DefaultConfidence: Confidence(0.25)})
	if len(got) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(got))
	}
	if got[0].ID != "bbox_0" || got[0].Confidence != 0.25 || got[0].Text != "Rex" {
		t.Errorf("first box: %+v", got[0])
	}
	// Out-of-range values are clamped rather than dropped.
	if !near(got[1].Box.Width, 0.1) || !near(got[1].Box.Height, 0.1) || got[1].Confidence != 1 {
		t.Errorf("second box not clamped: %+v", got[1])
	}
}

func TestNormalize_PercentScale(t *testing.T) {
	payload := []byte(`[{"type":"bbox","x":10,"y":20,"width":30,"height":40}]`)

	got := Normalize(payload, transform.Size{}, Options{Scale: transform.Percent})
	if len(got) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(got))
	}
	want := shape.Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4}
	b := got[0].Box
	if !near(b.X, want.X) || !near(b.Y, want.Y) || !near(b.Width, want.Width) || !near(b.Height, want.Height) {
		t.Errorf("box: got %+v, want %+v", b, want)
	}
}

func TestNormalize_MixedArray(t *testing.T) {
	payload := []byte(`[
		{"type":"point","id":"p","x":0.5,"y":0.5},
		{"class":"Car","bbox":[0,0,50,50]},
		{"x":0,"y":0,"width":0.5,"height":0.5,"label":"sign"}
	]`)

	got := Normalize(payload, transform.Size{Width: 100, Height: 100}, Options{})
	if len(got) != 3 {
		t.Fatalf("expected 3 shapes, got %d", len(got))
	}
	if got[1].ID != "bbox_1" || got[1].Label != "Car" || !near(got[1].Box.Width, 0.5) {
		t.Errorf("legacy entry: %+v", got[1])
	}
	if got[2].ID != "bbox_2" || got[2].Label != "sign" {
		t.Errorf("untyped entry: %+v", got[2])
	}
}

func TestNormalize_AnnotationsWinOverLegacyKeys(t *testing.T) {
	payload := []byte(`{
		"annotations":[{"type":"point","x":0.1,"y":0.1}],
		"bounding_boxes":[{"x":0,"y":0,"width":1,"height":1}]
	}`)

	report := NormalizeReport(payload, transform.Size{}, Options{})
	if report.Format != FormatAnnotations || len(report.Shapes) != 1 || report.Shapes[0].Kind != shape.KindPoint {
		t.Errorf("annotations key must take priority, got %q with %+v", report.Format, report.Shapes)
	}
}

func TestNormalize_DuplicateIDs(t *testing.T) {
	payload := []byte(`[
		{"id":"x","type":"point","x":0.1,"y":0.1},
		{"id":"x","type":"point","x":0.2,"y":0.2}
	]`)

	report := NormalizeReport(payload, transform.Size{}, Options{})
	if len(report.Shapes) != 1 || report.Shapes[0].At.X != 0.1 {
		t.Errorf("first occurrence must win, got %+v", report.Shapes)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Index != 1 {
		t.Errorf("expected duplicate at index 1 skipped, got %+v", report.Skipped)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	payload := []byte(`{"objects":[{"class":"Car","bbox":[100,50,40,30]}]}`)
	before := string(payload)

	_ = Normalize(payload, transform.Size{Width: 1000, Height: 500}, Options{})
	if string(payload) != before {
		t.Error("payload was modified")
	}
}
