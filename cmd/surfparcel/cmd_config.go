package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"surfparcel/internal/errors"
	"surfparcel/pkg/config"
)

func newConfigCommand(g *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "config",
		Short:             "Manage the configuration file",
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(newConfigInitCommand(g))
	return cmd
}

func newConfigInitCommand(g *GlobalOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:               "init path",
		Short:             "Write a configuration file with default values",
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !overwrite {
				return errors.Fatalf("%s already exists, use --overwrite to replace it", path)
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(g.stdout, "created configuration %s\n", path)
			return err
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")
	return cmd
}
