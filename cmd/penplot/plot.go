package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"penplot/plotter"
	"penplot/plotter/contour"
	"penplot/plotter/gcode"
)

func newPlotCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plot FILE",
		Short: "Plot a contour (JSON) or G-code file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			contours, err := loadContours(args[0], format)
			if err != nil {
				return err
			}
			if err := contour.Validate(contours, cfg.CanvasSize); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if contours, err = contour.Scale(contours, cfg.StepsPerPixel); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			seq, err := openSequencer(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, seq.Cleanup())
			}()

			if err := seq.Execute(cmd.Context(), contours); err != nil {
				return err
			}

			x, y := seq.Pulses()
			fmt.Fprintf(cmd.OutOrStdout(), "plotted %d contours: %d x pulses, %d y pulses\n",
				contour.Drawable(contours), x, y)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "input format: auto, json or gcode")
	return cmd
}

// loadContours reads path as a contour list. "auto" picks G-code by file
// extension and JSON otherwise.
func loadContours(path, format string) ([]plotter.Contour, error) {
	if format == "auto" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".gcode", ".gc", ".nc", ".ngc":
			format = "gcode"
		default:
			format = "json"
		}
	}

	switch format {
	case "json":
		return contour.LoadFile(path)
	case "gcode":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		contours, err := gcode.Read(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return contours, nil
	}
	return nil, fmt.Errorf("unknown input format %q", format)
}
