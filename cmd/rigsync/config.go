package main

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/rigsync/internal/config/layer"
)

func newConfigCmd(a *app) *cobra.Command {
	var sources bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			merged := a.cfg.Merged()
			if !sources {
				data, err := toml.Marshal(merged)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			flat := layer.FlattenMap(merged)
			paths := make([]string, 0, len(flat))
			for p := range flat {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			for _, p := range paths {
				if _, err := fmt.Fprintf(out, "%s = %v (%s)\n", p, flat[p], a.cfg.WhichLayer(p)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sources, "sources", false, "print each setting with the layer providing it")
	return cmd
}
