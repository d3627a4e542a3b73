package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/annotation-mcp/internal/draw"
	"github.com/ironsheep/annotation-mcp/internal/imaging"
	"github.com/ironsheep/annotation-mcp/internal/legacy"
	"github.com/ironsheep/annotation-mcp/internal/overlay"
	"github.com/ironsheep/annotation-mcp/internal/transform"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	d := draw.DefaultOptions()
	st := overlay.DefaultStyle()
	l := imaging.DefaultLoaderOptions()

	return &Config{
		LogLevel: "info",
		Canvas: CanvasCfg{
			Width:     800,
			MaxHeight: 600,
			Padding:   32,
		},
		Draw: DrawCfg{
			MinBoxArea:        d.MinBoxArea,
			CloseRadius:       d.CloseRadius,
			SimplifyTolerance: d.SimplifyTolerance,
			DefaultConfidence: d.DefaultConfidence,
		},
		Overlay: OverlayCfg{
			Palette:             append([]string(nil), overlay.DefaultColors...),
			StrokeWidth:         st.StrokeWidth,
			SelectedStrokeWidth: st.SelectedStrokeWidth,
			HandleRadius:        st.HandleRadius,
			PointRadius:         st.PointRadius,
			GlowRadius:          st.GlowRadius,
			HitTolerance:        0.03,
			MaxCanvasPixels:     st.MaxCanvasPixels,
		},
		Normalize: NormalizeCfg{
			Scale:             transform.Fraction.String(),
			DefaultConfidence: legacy.DefaultConfidence,
		},
		Loader: LoaderCfg{
			Attempts: l.Attempts,
			Delay:    l.Delay,
			Timeout:  l.Timeout,
			MaxBytes: l.MaxBytes,
		},
	}
}

// Container returns the fallback canvas container.
func (c *Config) Container() transform.Container {
	return transform.Container{
		Width:     c.Canvas.Width,
		MaxHeight: c.Canvas.MaxHeight,
		Padding:   c.Canvas.Padding,
	}
}

// DrawOptions returns the draw session commit rules.
func (c *Config) DrawOptions() draw.Options {
	return draw.Options{
		MinBoxArea:        c.Draw.MinBoxArea,
		CloseRadius:       c.Draw.CloseRadius,
		SimplifyTolerance: c.Draw.SimplifyTolerance,
		DefaultConfidence: c.Draw.DefaultConfidence,
	}
}

// NormalizeOptions returns the payload normalizer options.
func (c *Config) NormalizeOptions() (legacy.Options, error) {
	scale, err := transform.ParseScale(c.Normalize.Scale)
	if err != nil {
		return legacy.Options{}, fmt.Errorf("normalize.scale: %w", err)
	}
	return legacy.Options{Scale: scale, DefaultConfidence: legacy.Confidence(c.Normalize.DefaultConfidence)}, nil
}

// LoaderOptions returns the image loader settings.
func (c *Config) LoaderOptions() imaging.LoaderOptions {
	return imaging.LoaderOptions{
		Attempts: c.Loader.Attempts,
		Delay:    c.Loader.Delay,
		Timeout:  c.Loader.Timeout,
		MaxBytes: c.Loader.MaxBytes,
	}
}

// Renderer builds an overlay renderer from the palette and stroke settings.
func (c *Config) Renderer() (*overlay.Renderer, error) {
	palette, err := overlay.NewPalette(c.Overlay.Palette)
	if err != nil {
		return nil, fmt.Errorf("overlay.palette: %w", err)
	}
	st := overlay.DefaultStyle()
	st.StrokeWidth = c.Overlay.StrokeWidth
	st.SelectedStrokeWidth = c.Overlay.SelectedStrokeWidth
	st.HandleRadius = c.Overlay.HandleRadius
	st.PointRadius = c.Overlay.PointRadius
	st.GlowRadius = c.Overlay.GlowRadius
	st.MaxCanvasPixels = c.Overlay.MaxCanvasPixels
	return overlay.NewRenderer(palette, st), nil
}

// Validate checks values the engine cannot work with.
func (c *Config) Validate() error {
	if c.Canvas.Width <= c.Canvas.Padding {
		return fmt.Errorf("canvas.width %v must exceed canvas.padding %v", c.Canvas.Width, c.Canvas.Padding)
	}
	if c.Canvas.MaxHeight < 0 {
		return fmt.Errorf("canvas.max_height must not be negative")
	}
	if c.Draw.DefaultConfidence < 0 || c.Draw.DefaultConfidence > 1 {
		return fmt.Errorf("draw.default_confidence %v outside [0,1]", c.Draw.DefaultConfidence)
	}
	if c.Overlay.MaxCanvasPixels <= 0 {
		return fmt.Errorf("overlay.max_canvas_pixels must be positive")
	}
	if c.Normalize.DefaultConfidence < 0 || c.Normalize.DefaultConfidence > 1 {
		return fmt.Errorf("normalize.default_confidence %v outside [0,1]", c.Normalize.DefaultConfidence)
	}
	if _, err := c.NormalizeOptions(); err != nil {
		return err
	}
	if _, err := c.Renderer(); err != nil {
		return err
	}
	return nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# annotate-mcp configuration
# Every key can be overridden with an ANNOTATE_ environment variable,
# e.g. ANNOTATE_CANVAS_MAX_HEIGHT=400 or ANNOTATE_NORMALIZE_SCALE=percent

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}

// Encode writes cfg to w as YAML.
func Encode(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}
