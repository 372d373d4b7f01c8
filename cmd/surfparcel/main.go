package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"surfparcel/internal/errors"
	"surfparcel/pkg/freesurfer"
)

func init() {
	_, _ = maxprocs.Set()
}

func newRootCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surfparcel",
		Short: "Map parcellation atlases onto FreeSurfer subjects",
		Long: `
surfparcel maps a trained parcellation atlas onto subjects processed with
FreeSurfer's recon-all. It runs mris_ca_label and mris_anatomical_stats for
the cortical surfaces, mri_ca_label and mri_segstats for the subcortical
volume, and converts the resulting statistics to CSV tables inside each
subject's stats directory.
`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		DisableAutoGenTag: true,

		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return opts.PreRun(c)
		},
	}
	cmd.SetOut(opts.stdout)
	cmd.SetErr(opts.stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true

	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newRunCommand(opts, "run", true, true),
		newRunCommand(opts, "cortical", true, false),
		newRunCommand(opts, "subcortical", false, true),
		newLayoutCommand(opts),
		newDescribeCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(opts),
	)
	return cmd
}

// exitCode maps err to the status surfparcel exits with. The status of a
// failed FreeSurfer tool is passed through.
func exitCode(err error) int {
	var exitErr *freesurfer.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr) && exitErr.Code > 0:
		return exitErr.Code
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	opts := newGlobalOptions()
	err := newRootCommand(opts).ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.IsFatal(err), !opts.Verbose:
		fmt.Fprintln(os.Stderr, err)
	default:
		fmt.Fprintf(os.Stderr, "%+v\n", err)
	}
	os.Exit(exitCode(err))
}
