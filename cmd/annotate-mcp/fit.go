package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/annotation-mcp/internal/transform"
)

var (
	fitWidth          float64
	fitHeight         float64
	fitContainerWidth float64
	fitMaxHeight      float64
	fitPadding        float64
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Compute the canvas size of an image inside a container",
	Long: `Compute the aspect-preserving canvas size for an image. Container flags
that are not given fall back to the configured canvas.

Examples:
  annotate-mcp fit --width 1920 --height 1080
  annotate-mcp fit --width 1000 --height 2000 --container-width 500 --max-height 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := loadConfig(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		c := mgr.Get().Container()
		flags := cmd.Flags()
		if flags.Changed("container-width") {
			c.Width = fitContainerWidth
		}
		if flags.Changed("max-height") {
			c.MaxHeight = fitMaxHeight
		}
		if flags.Changed("padding") {
			c.Padding = fitPadding
		}

		size, err := transform.Fit(transform.Size{Width: fitWidth, Height: fitHeight}, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%gx%g\n", size.Width, size.Height)
		return nil
	},
}

func init() {
	fitCmd.Flags().Float64Var(&fitWidth, "width", 0, "natural image width in pixels")
	fitCmd.Flags().Float64Var(&fitHeight, "height", 0, "natural image height in pixels")
	fitCmd.Flags().Float64Var(&fitContainerWidth, "container-width", 0, "container width in pixels")
	fitCmd.Flags().Float64Var(&fitMaxHeight, "max-height", 0, "maximum canvas height; 0 means unbounded")
	fitCmd.Flags().Float64Var(&fitPadding, "padding", 0, "total horizontal padding")
	fitCmd.MarkFlagRequired("width")
	fitCmd.MarkFlagRequired("height")
}
