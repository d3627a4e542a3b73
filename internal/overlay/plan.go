package overlay

import (
	"fmt"
	"math"

	"github.com/ironsheep/annotation-mcp/internal/shape"
	"github.com/ironsheep/annotation-mcp/internal/transform"
)

// Style holds the stroke and fill parameters of a render.
type Style struct {
	StrokeWidth         float64 `json:"stroke_width"`
	SelectedStrokeWidth float64 `json:"selected_stroke_width"`
	HandleRadius        float64 `json:"handle_radius"`
	PointRadius         float64 `json:"point_radius"`
	GlowRadius          float64 `json:"glow_radius"`

	// Fill alphas, 0-255, applied to the label color.
	BoxFillAlpha     uint8 `json:"box_fill_alpha"`
	PolygonFillAlpha uint8 `json:"polygon_fill_alpha"`
	MaskFillAlpha    uint8 `json:"mask_fill_alpha"`

	// MaxCanvasPixels caps width*height of any raster the renderer
	// allocates. Zero selects DefaultMaxCanvasPixels.
	MaxCanvasPixels int `json:"max_canvas_pixels"`
}

// DefaultMaxCanvasPixels is the stock raster budget, a 4096x4096 canvas.
const DefaultMaxCanvasPixels = 4096 * 4096

// DefaultStyle returns the stock style.
func DefaultStyle() Style {
	return Style{
		StrokeWidth:         2,
		SelectedStrokeWidth: 3,
		HandleRadius:        4,
		PointRadius:         6,
		GlowRadius:          4,
		BoxFillAlpha:        0x15,
		PolygonFillAlpha:    0x20,
		MaskFillAlpha:       0x40,
		MaxCanvasPixels:     DefaultMaxCanvasPixels,
	}
}

// Primitive is one shape ready to draw, in canvas pixels.
type Primitive struct {
	ID   string     `json:"id"`
	Kind shape.Kind `json:"kind"`

	// Geometry; only the fields of Kind are set.
	Rect   *transform.PixelRect   `json:"rect,omitempty"`
	Points []transform.PixelPoint `json:"points,omitempty"`
	At     *transform.PixelPoint  `json:"at,omitempty"`
	Radius float64                `json:"radius,omitempty"`
	Closed bool                   `json:"closed,omitempty"`

	Stroke      string  `json:"stroke"`
	Fill        string  `json:"fill,omitempty"`
	FillAlpha   uint8   `json:"fill_alpha,omitempty"`
	StrokeWidth float64 `json:"stroke_width"`

	Selected bool `json:"selected,omitempty"`
	Glow     bool `json:"glow,omitempty"`
	Dashed   bool `json:"dashed,omitempty"`

	Handles      []transform.PixelPoint `json:"handles,omitempty"`
	HandleRadius float64                `json:"handle_radius,omitempty"`

	Caption   string               `json:"caption,omitempty"`
	CaptionAt transform.PixelPoint `json:"caption_at"`
}

// Renderer turns shapes into primitives and pixels.
type Renderer struct {
	palette *Palette
	style   Style
}

// NewRenderer returns a renderer. A nil palette selects DefaultPalette.
func NewRenderer(p *Palette, style Style) *Renderer {
	if p == nil {
		p = DefaultPalette()
	}
	return &Renderer{palette: p, style: style}
}

// Palette returns the renderer's palette.
func (r *Renderer) Palette() *Palette { return r.palette }

// Style returns the renderer's style.
func (r *Renderer) Style() Style { return r.style }

// Caption formats the text shown next to a shape, e.g. "car (90%)".
func Caption(label string, confidence float64) string {
	return fmt.Sprintf("%s (%d%%)", label, int(math.Round(confidence*100)))
}

// Plan lays out shapes for canvas. Shapes keep list order, except that the
// selected shape is moved to the end so it draws on top. The draft, when not
// nil, is appended last as a dashed primitive without caption. Masks without
// bounds are skipped.
func (r *Renderer) Plan(shapes shape.List, draft *shape.Shape, canvas transform.Size, sel *Selection) []Primitive {
	plan := make([]Primitive, 0, len(shapes)+1)
	var top *Primitive

	for _, s := range shapes {
		selected := sel != nil && sel.Is(s.ID)
		p, ok := r.primitive(s, canvas, selected)
		if !ok {
			continue
		}
		if selected {
			top = &p
			continue
		}
		plan = append(plan, p)
	}
	if top != nil {
		plan = append(plan, *top)
	}

	if draft != nil {
		if p, ok := r.primitive(*draft, canvas, false); ok {
			p.Dashed = true
			p.Caption = ""
			p.Closed = false
			p.Fill, p.FillAlpha = "", 0
			plan = append(plan, p)
		}
	}
	return plan
}

func (r *Renderer) primitive(s shape.Shape, canvas transform.Size, selected bool) (Primitive, bool) {
	color := r.palette.Hex(s.Label)
	p := Primitive{
		ID:          s.ID,
		Kind:        s.Kind,
		Stroke:      color,
		StrokeWidth: r.style.StrokeWidth,
		Selected:    selected,
		Glow:        selected,
		Caption:     Caption(s.Label, s.Confidence),
	}
	if selected {
		p.StrokeWidth = r.style.SelectedStrokeWidth
	}

	px := transform.ShapeToPixel(s, canvas)
	switch s.Kind {
	case shape.KindBox:
		p.Rect = &px.Rect
		p.Fill, p.FillAlpha = color, r.style.BoxFillAlpha
		p.CaptionAt = transform.PixelPoint{X: px.Rect.X, Y: px.Rect.Y}
	case shape.KindMask:
		if s.Bounds == nil {
			return Primitive{}, false
		}
		p.Rect = &px.Rect
		p.Fill, p.FillAlpha = color, r.style.MaskFillAlpha
		p.CaptionAt = transform.PixelPoint{X: px.Rect.X, Y: px.Rect.Y}
	case shape.KindPolygon, shape.KindPolyline:
		if len(px.Points) == 0 {
			return Primitive{}, false
		}
		p.Points = px.Points
		p.Handles = px.Points
		p.HandleRadius = r.style.HandleRadius
		p.CaptionAt = px.Points[0]
		if s.Kind == shape.KindPolygon {
			p.Closed = true
			p.Fill, p.FillAlpha = color, r.style.PolygonFillAlpha
		}
	case shape.KindPoint:
		p.At = &px.At
		p.Radius = r.style.PointRadius
		p.CaptionAt = transform.PixelPoint{X: px.At.X + 10, Y: px.At.Y}
	default:
		return Primitive{}, false
	}
	return p, true
}
