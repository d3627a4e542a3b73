package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/annotation-mcp/internal/shape"
)

// CropResult contains the cropped image data
type CropResult struct {
	ShapeID string `json:"shape_id"`

	// Region is the cropped area in natural image pixels; (X1,Y1) inclusive,
	// (X2,Y2) exclusive.
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`

	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropShape extracts the region covered by a shape so it can be reviewed at
// full resolution.
//
// Parameters:
//   - img: The source image at natural size.
//   - s: The shape. Its bounding rectangle is used; for points, a square of
//     side 2*padding around the point.
//   - padding: Normalized margin added on every side, clamped to the image.
//   - scale: Output scale factor; values <= 0 or 1 keep the cropped size.
//
// # Errors
//
//   - Returns error if the region is empty after clamping (e.g. a zero-width
//     box with no padding)
//   - Returns error if PNG encoding fails
func CropShape(img image.Image, s shape.Shape, padding, scale float64) (*CropResult, error) {
	r := shape.BoundingRect(s)
	padding = math.Max(padding, 0)
	x1, y1 := shape.Clamp01(r.X-padding), shape.Clamp01(r.Y-padding)
	x2, y2 := shape.Clamp01(r.X+r.Width+padding), shape.Clamp01(r.Y+r.Height+padding)

	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	region := image.Rect(
		bounds.Min.X+int(math.Floor(x1*w)),
		bounds.Min.Y+int(math.Floor(y1*h)),
		bounds.Min.X+int(math.Ceil(x2*w)),
		bounds.Min.Y+int(math.Ceil(y2*h)),
	).Intersect(bounds)
	if region.Empty() {
		return nil, fmt.Errorf("shape %q covers no pixels", s.ID)
	}

	cropped := imaging.Crop(img, region)
	if scale > 0 && scale != 1.0 {
		newWidth := max(int(float64(cropped.Bounds().Dx())*scale), 1)
		newHeight := max(int(float64(cropped.Bounds().Dy())*scale), 1)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		ShapeID:     s.ID,
		X1:          region.Min.X,
		Y1:          region.Min.Y,
		X2:          region.Max.X,
		Y2:          region.Max.Y,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
