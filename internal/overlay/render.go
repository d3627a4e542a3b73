package overlay

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/annotation-mcp/internal/transform"
)

// ErrCanvasTooLarge is returned when a canvas exceeds the renderer's pixel
// budget.
var ErrCanvasTooLarge = errors.New("canvas exceeds pixel budget")

// RenderResult contains the rendered overlay
type RenderResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Primitives  int    `json:"primitives"`
}

var (
	backgroundColor = color.NRGBA{0xF3, 0xF4, 0xF6, 0xFF}
	white           = color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}
	captionFace     = basicfont.Face7x13
)

const (
	dashOn     = 6.0
	dashPeriod = 10.0
	captionPad = 4
)

// bounds returns the raster rectangle for a width x height canvas, at least
// one pixel on each side. Sizes above the pixel budget are rejected before
// anything is allocated.
func (r *Renderer) bounds(width, height float64) (image.Rectangle, error) {
	budget := r.style.MaxCanvasPixels
	if budget <= 0 {
		budget = DefaultMaxCanvasPixels
	}
	width = math.Max(math.Round(width), 1)
	height = math.Max(math.Round(height), 1)
	if math.IsNaN(width) || math.IsNaN(height) || width*height > float64(budget) {
		return image.Rectangle{}, fmt.Errorf("%w: %gx%g exceeds %d pixels", ErrCanvasTooLarge, width, height, budget)
	}
	return image.Rect(0, 0, int(width), int(height)), nil
}

// Render draws plan over base scaled to canvas. A nil base draws the plan on
// a neutral background.
//
// Returns ErrCanvasTooLarge if canvas exceeds the pixel budget.
func (r *Renderer) Render(base image.Image, canvas transform.Size, plan []Primitive) (*image.RGBA, error) {
	rect, err := r.bounds(canvas.Width, canvas.Height)
	if err != nil {
		return nil, err
	}
	w, h := rect.Dx(), rect.Dy()
	dst := image.NewRGBA(rect)

	if base != nil {
		resized := imaging.Resize(base, w, h, imaging.Lanczos)
		draw.Draw(dst, dst.Bounds(), resized, image.Point{}, draw.Src)
	} else {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)
	}

	for _, p := range plan {
		c, err := colorful.Hex(p.Stroke)
		if err != nil {
			continue
		}
		stroke := toNRGBA(c, 0xFF)

		if p.Glow {
			r.drawGlow(dst, p, c)
		}
		if p.Fill != "" && p.FillAlpha > 0 {
			if fc, err := colorful.Hex(p.Fill); err == nil {
				fillPrimitive(dst, p, toNRGBA(fc, p.FillAlpha))
			}
		}
		strokePrimitive(dst, p, p.StrokeWidth, stroke)

		for _, hp := range p.Handles {
			fillDisc(dst, hp.X, hp.Y, p.HandleRadius+1, white)
			fillDisc(dst, hp.X, hp.Y, p.HandleRadius, stroke)
		}
		if p.Caption != "" {
			drawCaption(dst, p, stroke)
		}
	}
	return dst, nil
}

// RenderPNG renders plan and returns it as a base64 PNG.
func (r *Renderer) RenderPNG(base image.Image, canvas transform.Size, plan []Primitive) (*RenderResult, error) {
	img, err := r.Render(base, canvas, plan)
	if err != nil {
		return nil, err
	}
	encoded, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	return &RenderResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Primitives:  len(plan),
	}, nil
}

// Placeholder renders an empty container-sized image for an image that failed
// to load. It is held to the same pixel budget as Render.
func (r *Renderer) Placeholder(c transform.Container) (*image.RGBA, error) {
	width := math.Max(math.Round(c.Width-c.Padding), 1)
	height := math.Round(width * 9 / 16)
	if c.MaxHeight > 0 && height > c.MaxHeight {
		height = math.Round(c.MaxHeight)
	}

	rect, err := r.bounds(width, height)
	if err != nil {
		return nil, err
	}
	w, h := rect.Dx(), rect.Dy()
	dst := image.NewRGBA(rect)
	draw.Draw(dst, dst.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	msg := "image unavailable"
	tw := font.MeasureString(captionFace, msg).Ceil()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{0x6B, 0x72, 0x80, 0xFF}),
		Face: captionFace,
		Dot:  fixed.P((w-tw)/2, h/2+captionFace.Ascent/2),
	}
	d.DrawString(msg)
	return dst, nil
}

// PlaceholderPNG returns Placeholder as a base64 PNG.
func (r *Renderer) PlaceholderPNG(c transform.Container) (*RenderResult, error) {
	img, err := r.Placeholder(c)
	if err != nil {
		return nil, err
	}
	encoded, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	return &RenderResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode overlay: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// drawGlow strokes a wide, lightened outline on a scratch layer, blurs it and
// composites it under the shape.
func (r *Renderer) drawGlow(dst *image.RGBA, p Primitive, c colorful.Color) {
	layer := image.NewRGBA(dst.Bounds())
	glow := toNRGBA(c.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.35), 0xC0)
	width := p.StrokeWidth + 2*r.style.GlowRadius

	outline := p
	outline.Dashed = false
	strokePrimitive(layer, outline, width, glow)

	blurred := blur.Gaussian(layer, r.style.GlowRadius)
	draw.Draw(dst, dst.Bounds(), blurred, image.Point{}, draw.Over)
}

func toNRGBA(c colorful.Color, alpha uint8) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}
}

func fillPrimitive(dst *image.RGBA, p Primitive, c color.NRGBA) {
	switch {
	case p.Rect != nil:
		rect := image.Rect(
			int(math.Round(p.Rect.X)), int(math.Round(p.Rect.Y)),
			int(math.Round(p.Rect.X+p.Rect.Width)), int(math.Round(p.Rect.Y+p.Rect.Height)),
		)
		draw.Draw(dst, rect.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
	case p.Closed && len(p.Points) >= 3:
		fillPolygon(dst, p.Points, c)
	}
}

func strokePrimitive(dst *image.RGBA, p Primitive, width float64, c color.NRGBA) {
	switch {
	case p.Rect != nil:
		x0, y0 := p.Rect.X, p.Rect.Y
		x1, y1 := x0+p.Rect.Width, y0+p.Rect.Height
		path := []transform.PixelPoint{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
		strokePath(dst, path, true, width, p.Dashed, c)
	case p.At != nil:
		fillDisc(dst, p.At.X, p.At.Y, p.Radius+width/2+1, white)
		fillDisc(dst, p.At.X, p.At.Y, p.Radius, c)
	default:
		strokePath(dst, p.Points, p.Closed, width, p.Dashed, c)
	}
}

// strokePath stamps discs along each segment. Dash phase runs continuously
// across vertices.
func strokePath(dst *image.RGBA, pts []transform.PixelPoint, closed bool, width float64, dashed bool, c color.NRGBA) {
	if len(pts) == 0 {
		return
	}
	radius := math.Max(width/2, 0.5)
	if len(pts) == 1 {
		fillDisc(dst, pts[0].X, pts[0].Y, radius, c)
		return
	}

	n := len(pts) - 1
	if closed {
		n = len(pts)
	}
	travelled := 0.0
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		steps := int(math.Ceil(length*2)) + 1
		for s := 0; s <= steps; s++ {
			t := float64(s) / float64(steps)
			if dashed && math.Mod(travelled+t*length, dashPeriod) >= dashOn {
				continue
			}
			fillDisc(dst, a.X+t*dx, a.Y+t*dy, radius, c)
		}
		travelled += length
	}
}

// fillDisc paints the pixels whose centers lie within r of (cx, cy).
func fillDisc(dst *image.RGBA, cx, cy, r float64, c color.NRGBA) {
	minX, maxX := int(math.Floor(cx-r)), int(math.Ceil(cx+r))
	minY, maxY := int(math.Floor(cy-r)), int(math.Ceil(cy+r))
	r2 := r * r
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= r2 {
				blendPixel(dst, x, y, c)
			}
		}
	}
}

// fillPolygon is an even-odd scanline fill sampled at pixel centers.
func fillPolygon(dst *image.RGBA, pts []transform.PixelPoint, c color.NRGBA) {
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	b := dst.Bounds()
	y0 := max(int(math.Floor(minY)), b.Min.Y)
	y1 := min(int(math.Ceil(maxY)), b.Max.Y-1)
	xs := make([]float64, 0, len(pts))

	for y := y0; y <= y1; y++ {
		yc := float64(y) + 0.5
		xs = xs[:0]
		for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
			p, q := pts[i], pts[j]
			if (p.Y > yc) != (q.Y > yc) {
				xs = append(xs, p.X+(yc-p.Y)*(q.X-p.X)/(q.Y-p.Y))
			}
		}
		sort.Float64s(xs)
		for k := 0; k+1 < len(xs); k += 2 {
			for x := int(math.Ceil(xs[k] - 0.5)); float64(x)+0.5 <= xs[k+1]; x++ {
				blendPixel(dst, x, y, c)
			}
		}
	}
}

// blendPixel composites c over the premultiplied pixel at (x, y).
func blendPixel(dst *image.RGBA, x, y int, c color.NRGBA) {
	if !image.Pt(x, y).In(dst.Rect) || c.A == 0 {
		return
	}
	i := dst.PixOffset(x, y)
	a := uint32(c.A)
	inv := 255 - a
	dst.Pix[i+0] = uint8((uint32(c.R)*a + uint32(dst.Pix[i+0])*inv) / 255)
	dst.Pix[i+1] = uint8((uint32(c.G)*a + uint32(dst.Pix[i+1])*inv) / 255)
	dst.Pix[i+2] = uint8((uint32(c.B)*a + uint32(dst.Pix[i+2])*inv) / 255)
	dst.Pix[i+3] = uint8(a + uint32(dst.Pix[i+3])*inv/255)
}

// drawCaption paints the caption on a label-colored tab above the caption
// anchor, or just below it when there is no room at the top edge.
func drawCaption(dst *image.RGBA, p Primitive, bg color.NRGBA) {
	tw := font.MeasureString(captionFace, p.Caption).Ceil()
	th := captionFace.Height
	x := int(math.Round(p.CaptionAt.X))
	top := int(math.Round(p.CaptionAt.Y)) - th - 2*captionPad
	if top < 0 {
		top = int(math.Round(p.CaptionAt.Y))
	}

	tab := image.Rect(x, top, x+tw+2*captionPad, top+th+2*captionPad)
	draw.Draw(dst, tab.Intersect(dst.Bounds()), image.NewUniform(bg), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(white),
		Face: captionFace,
		Dot:  fixed.P(x+captionPad, top+captionPad+captionFace.Ascent),
	}
	d.DrawString(p.Caption)
}
