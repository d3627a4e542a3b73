package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ANNOTATE_CANVAS_MAX_HEIGHT.
const EnvPrefix = "ANNOTATE"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
// cfgFile may be empty, in which case ./annotate.yaml and
// $HOME/.annotate-mcp/annotate.yaml are tried.
func NewManager(cfgFile string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    logger,
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	cm.v.SetDefault("log_level", defaults.LogLevel)
	cm.v.SetDefault("canvas.width", defaults.Canvas.Width)
	cm.v.SetDefault("canvas.max_height", defaults.Canvas.MaxHeight)
	cm.v.SetDefault("canvas.padding", defaults.Canvas.Padding)
	cm.v.SetDefault("draw.min_box_area", defaults.Draw.MinBoxArea)
	cm.v.SetDefault("draw.close_radius", defaults.Draw.CloseRadius)
	cm.v.SetDefault("draw.simplify_tolerance", defaults.Draw.SimplifyTolerance)
	cm.v.SetDefault("draw.default_confidence", defaults.Draw.DefaultConfidence)
	cm.v.SetDefault("overlay.palette", defaults.Overlay.Palette)
	cm.v.SetDefault("overlay.stroke_width", defaults.Overlay.StrokeWidth)
	cm.v.SetDefault("overlay.selected_stroke_width", defaults.Overlay.SelectedStrokeWidth)
	cm.v.SetDefault("overlay.handle_radius", defaults.Overlay.HandleRadius)
	cm.v.SetDefault("overlay.point_radius", defaults.Overlay.PointRadius)
	cm.v.SetDefault("overlay.glow_radius", defaults.Overlay.GlowRadius)
	cm.v.SetDefault("overlay.hit_tolerance", defaults.Overlay.HitTolerance)
	cm.v.SetDefault("overlay.max_canvas_pixels", defaults.Overlay.MaxCanvasPixels)
	cm.v.SetDefault("normalize.scale", defaults.Normalize.Scale)
	cm.v.SetDefault("normalize.default_confidence", defaults.Normalize.DefaultConfidence)
	cm.v.SetDefault("loader.attempts", defaults.Loader.Attempts)
	cm.v.SetDefault("loader.delay", defaults.Loader.Delay)
	cm.v.SetDefault("loader.timeout", defaults.Loader.Timeout)
	cm.v.SetDefault("loader.max_bytes", defaults.Loader.MaxBytes)

	// Environment variables with ANNOTATE_ prefix; nested keys use _
	cm.v.SetEnvPrefix(EnvPrefix)
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("annotate")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		cm.v.AddConfigPath("$HOME/.annotate-mcp")
	}

	// Try to read config file (not required)
	if err := cm.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a validated Config.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the configuration was read from, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. An edit that fails to
// parse or validate is logged and the previous configuration stays active.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.logger.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		cm.logger.Info("config reloaded", "file", e.Name)
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}
