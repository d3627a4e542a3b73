package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/annotation-mcp/internal/config"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "annotate-mcp",
	Short: "Image annotation geometry engine served over MCP",
	Long: `annotate-mcp keeps bounding boxes, polygons, polylines, points and masks
for images in resolution-independent coordinates.

It provides:
  - An MCP server (stdio) for drawing, editing and rendering annotations
  - Conversion of stored annotation payloads into the canonical form
  - Canvas fitting for arbitrary containers`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./annotate.yaml or ~/.annotate-mcp/annotate.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)",
	)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig reads the configuration and builds the logger it asks for.
// Logs go to w; stdout is reserved for the protocol.
func loadConfig(w io.Writer) (*config.Manager, *slog.Logger, error) {
	mgr, err := config.NewManager(cfgFile, nil)
	if err != nil {
		return nil, nil, err
	}

	level := mgr.Get().LogLevel
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	return mgr, logger, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
