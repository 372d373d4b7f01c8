package main

import (
	"github.com/spf13/cobra"

	"surfparcel/pkg/layout"
	"surfparcel/pkg/report"
)

func newLayoutCommand(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "layout subject-dir",
		Short: "Show the recon-all metadata and outputs of a subject",
		Long: `
The "layout" command reads the recon-all metadata of a subject and lists
the file matched by every configured output pattern. Outputs that exist
once per hemisphere are listed in the LH and RH columns.
`,
		Args:              cobra.ExactArgs(1),
		DisableAutoGenTag: true,
		RunE: func(_ *cobra.Command, args []string) error {
			dirs, err := subjectDirs(args)
			if err != nil {
				return err
			}
			l, err := layout.New(dirs[0])
			if err != nil {
				return err
			}
			if _, err := l.CollectOutputs(layout.MergeOutputs(g.cfg.Layout.Outputs)); err != nil {
				return err
			}
			return report.NewViewer(g.stdout, g.Plain).ShowLayout(l)
		},
	}
}
