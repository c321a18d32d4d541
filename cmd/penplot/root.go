package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"penplot/host/serial"
	"penplot/plotter"
	"penplot/plotter/config"
)

// options holds the flags shared by every subcommand
type options struct {
	configPath   string
	backend      string
	serialDriver string
	logLevel     string
	logFormat    string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{logger: slog.Default()}

	root := &cobra.Command{
		Use:           "penplot",
		Short:         "Drive a two-axis pen plotter",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "machine config file (default $"+config.EnvConfig+")")
	flags.StringVar(&opts.backend, "backend", "", "override the configured backend: gpiochip, serial or sim")
	flags.StringVar(&opts.serialDriver, "serial-driver", string(serial.DriverTarm), "serial library for the serial backend: tarm or bugst")
	flags.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "text or json")

	root.AddCommand(
		newPlotCmd(opts),
		newConsoleCmd(opts),
		newPortsCmd(),
		newCheckCmd(opts),
	)
	return root
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// loadConfig reads the machine config and applies the --backend override
func (o *options) loadConfig() (*plotter.MachineConfig, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.backend != "" && o.backend != cfg.Backend {
		cfg.Backend = o.backend
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
