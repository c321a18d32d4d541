package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCheckCmd(opts *options) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the machine config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok: backend %s, x %d motor(s), y %d motor(s)\n",
				cfg.Backend, len(cfg.X.Motors), len(cfg.Y.Motors))
			if !show {
				return nil
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&show, "print", false, "print the effective config as YAML")
	return cmd
}
