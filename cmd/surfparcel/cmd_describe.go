package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"surfparcel/pkg/report"
	"surfparcel/pkg/stats"
)

func newDescribeCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe file.stats [file.stats...]",
		Short: "Summarize the regional table of FreeSurfer stats files",
		Long: `
The "describe" command parses stats files written by mris_anatomical_stats
or mri_segstats and prints count, mean, standard deviation, minimum,
median and maximum of every numeric column of the regional table.
`,
		Args:              cobra.MinimumNArgs(1),
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			v := report.NewViewer(g.stdout, g.Plain)
			for _, path := range args {
				f, err := stats.ParseFile(path)
				if err != nil {
					return err
				}
				g.log.WithField("file", path).Debugf("%d measures, %d rows", len(f.Measures), len(f.Table.Rows))
				if err := v.ShowSummary(filepath.Base(path), f.Table.Describe()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
