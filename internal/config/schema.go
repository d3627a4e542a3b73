package config

import "time"

// Config is the full server configuration.
type Config struct {
	LogLevel  string       `mapstructure:"log_level" yaml:"log_level"` // "debug", "info", "warn", "error"
	Canvas    CanvasCfg    `mapstructure:"canvas" yaml:"canvas"`
	Draw      DrawCfg      `mapstructure:"draw" yaml:"draw"`
	Overlay   OverlayCfg   `mapstructure:"overlay" yaml:"overlay"`
	Normalize NormalizeCfg `mapstructure:"normalize" yaml:"normalize"`
	Loader    LoaderCfg    `mapstructure:"loader" yaml:"loader"`
}

// CanvasCfg is the container used when a client does not report one.
type CanvasCfg struct {
	Width     float64 `mapstructure:"width" yaml:"width"`           // Fallback container width in pixels
	MaxHeight float64 `mapstructure:"max_height" yaml:"max_height"` // 0 = unbounded
	Padding   float64 `mapstructure:"padding" yaml:"padding"`       // Subtracted from width
}

// DrawCfg tunes the draw session commit rules.
type DrawCfg struct {
	MinBoxArea        float64 `mapstructure:"min_box_area" yaml:"min_box_area"`
	CloseRadius       float64 `mapstructure:"close_radius" yaml:"close_radius"`
	SimplifyTolerance float64 `mapstructure:"simplify_tolerance" yaml:"simplify_tolerance"` // 0 disables
	DefaultConfidence float64 `mapstructure:"default_confidence" yaml:"default_confidence"`
}

// OverlayCfg controls colors and strokes.
type OverlayCfg struct {
	Palette             []string `mapstructure:"palette" yaml:"palette"` // "#RRGGBB" entries
	StrokeWidth         float64  `mapstructure:"stroke_width" yaml:"stroke_width"`
	SelectedStrokeWidth float64  `mapstructure:"selected_stroke_width" yaml:"selected_stroke_width"`
	HandleRadius        float64  `mapstructure:"handle_radius" yaml:"handle_radius"`
	PointRadius         float64  `mapstructure:"point_radius" yaml:"point_radius"`
	GlowRadius          float64  `mapstructure:"glow_radius" yaml:"glow_radius"`
	HitTolerance        float64  `mapstructure:"hit_tolerance" yaml:"hit_tolerance"` // Normalized
	MaxCanvasPixels     int      `mapstructure:"max_canvas_pixels" yaml:"max_canvas_pixels"`
}

// NormalizeCfg controls payload normalization.
type NormalizeCfg struct {
	Scale             string  `mapstructure:"scale" yaml:"scale"` // "fraction" or "percent"
	DefaultConfidence float64 `mapstructure:"default_confidence" yaml:"default_confidence"`
}

// LoaderCfg controls image fetching.
type LoaderCfg struct {
	Attempts uint          `mapstructure:"attempts" yaml:"attempts"`
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
}
