package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/annotation-mcp/internal/legacy"
	"github.com/ironsheep/annotation-mcp/internal/shape"
	"github.com/ironsheep/annotation-mcp/internal/transform"
)

var (
	normalizeWidth  float64
	normalizeHeight float64
	normalizeScale  string
	normalizeReport bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Convert a stored annotation payload into canonical shapes",
	Long: `Read an annotation payload in any accepted layout and print the canonical
shape list. Use "-" to read from stdin.

Legacy pixel objects ({"objects":[{"bbox":[x,y,w,h]}]}) need the natural
image size.

Examples:
  annotate-mcp normalize task.json
  annotate-mcp normalize legacy.json --width 1920 --height 1080
  cat boxes.json | annotate-mcp normalize - --scale percent --report`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, logger, err := loadConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		payload, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		opts, err := mgr.Get().NormalizeOptions()
		if err != nil {
			return err
		}
		if normalizeScale != "" {
			if opts.Scale, err = transform.ParseScale(normalizeScale); err != nil {
				return err
			}
		}

		report := legacy.NormalizeReport(payload, transform.Size{Width: normalizeWidth, Height: normalizeHeight}, opts)
		for _, sk := range report.Skipped {
			logger.Warn("skipped entry", "index", sk.Index, "reason", sk.Reason())
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if !normalizeReport {
			return enc.Encode(shape.List(report.Shapes))
		}

		skipped := make([]map[string]interface{}, 0, len(report.Skipped))
		for _, sk := range report.Skipped {
			skipped = append(skipped, map[string]interface{}{"index": sk.Index, "reason": sk.Reason()})
		}
		return enc.Encode(map[string]interface{}{
			"format":  report.Format,
			"shapes":  report.Shapes,
			"skipped": skipped,
		})
	},
}

func init() {
	normalizeCmd.Flags().Float64Var(&normalizeWidth, "width", 0, "natural image width in pixels")
	normalizeCmd.Flags().Float64Var(&normalizeHeight, "height", 0, "natural image height in pixels")
	normalizeCmd.Flags().StringVar(&normalizeScale, "scale", "", "coordinate unit of the payload: fraction or percent (default from config)")
	normalizeCmd.Flags().BoolVar(&normalizeReport, "report", false, "print the detected format and skipped entries")
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return data, nil
}
