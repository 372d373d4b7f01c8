package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
	"surfparcel/pkg/layout"
	"surfparcel/pkg/procedure"
	"surfparcel/pkg/report"
)

// RunOptions collects the flags of run, cortical and subcortical.
type RunOptions struct {
	Atlas       string
	Seed        int
	Force       bool
	Jobs        int
	Cortical    bool
	Subcortical bool
	ExcludeIDs  []int

	LhGCS        string
	RhGCS        string
	SubcortexGCS string
	LUT          string
}

func (opts *RunOptions) AddFlags(f *pflag.FlagSet, selectable bool) {
	f.StringVarP(&opts.Atlas, "atlas", "a", "", "`name` of the atlas to map (from config, or named by the file flags)")
	f.IntVar(&opts.Seed, "seed", procedure.DefaultSeed, "random `seed` passed to mris_ca_label")
	f.BoolVarP(&opts.Force, "force", "f", false, "recompute outputs that already exist")
	f.IntVarP(&opts.Jobs, "jobs", "j", 0, "process `n` subjects at the same time (default: from config)")
	f.IntSliceVar(&opts.ExcludeIDs, "exclude-id", nil, "segmentation `id` left out of the subcortical statistics (can be repeated)")

	f.StringVar(&opts.LhGCS, "lh-gcs", "", "left hemisphere surface classifier `file`")
	f.StringVar(&opts.RhGCS, "rh-gcs", "", "right hemisphere surface classifier `file`")
	f.StringVar(&opts.SubcortexGCS, "subcortex-gcs", "", "subcortical volume classifier `file`")
	f.StringVar(&opts.LUT, "lut", "", "color lookup table `file` of the atlas")

	if selectable {
		f.BoolVar(&opts.Cortical, "cortical", false, "run the cortical registration")
		f.BoolVar(&opts.Subcortical, "subcortical", false, "run the subcortical registration")
	}
}

func newRunCommand(g *GlobalOptions, name string, cortical, subcortical bool) *cobra.Command {
	var opts RunOptions
	selectable := cortical && subcortical

	short := "Map an atlas onto subjects"
	switch {
	case !subcortical:
		short = "Map the surface classifiers of an atlas onto subjects"
	case !cortical:
		short = "Map the volume classifier of an atlas onto subjects"
	}

	cmd := &cobra.Command{
		Use:   name + " [flags] subject-dir [subject-dir...]",
		Short: short,
		Long: `
The subjects are directories created by recon-all, or subject ids below
$SUBJECTS_DIR. Outputs that already exist are kept unless --force is given.
Each subject gets a manifest in scripts/surfparcel.<atlas>.yaml.

EXIT STATUS
===========

Exit status is 0 if every subject was processed successfully.
Exit status is 1 if an input was missing or invalid.
If a FreeSurfer tool fails, surfparcel exits with the tool's exit status.
`,
		Args:              cobra.MinimumNArgs(1),
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := [2]bool{cortical, subcortical}
			if selectable {
				run = selectProcedures(cmd.Flags(), opts, g)
			}
			return runParcellation(cmd, g, opts, run[0], run[1], args)
		},
	}
	opts.AddFlags(cmd.Flags(), selectable)
	return cmd
}

// selectProcedures honors --cortical/--subcortical when either is given and
// the configuration otherwise.
func selectProcedures(f *pflag.FlagSet, opts RunOptions, g *GlobalOptions) [2]bool {
	if f.Changed("cortical") || f.Changed("subcortical") {
		return [2]bool{opts.Cortical, opts.Subcortical}
	}
	return [2]bool{g.cfg.Processing.Cortical, g.cfg.Processing.Subcortical}
}

func runParcellation(cmd *cobra.Command, g *GlobalOptions, opts RunOptions, cortical, subcortical bool, args []string) error {
	cfg := g.cfg
	f := cmd.Flags()

	atlas, err := resolveAtlas(g, opts)
	if err != nil {
		return err
	}

	params := procedure.Params{
		Seed:       cfg.Processing.Seed,
		NumThreads: cfg.FreeSurfer.NumThreads,
		ExcludeIDs: cfg.Processing.ExcludeIDs,
		Runner:     g.runner(),
		DryRun:     g.DryRun,
		Log:        g.log.WithField("atlas", atlas.Name),
	}
	if f.Changed("seed") {
		params.Seed = opts.Seed
	}
	if f.Changed("exclude-id") {
		params.ExcludeIDs = opts.ExcludeIDs
	}

	force := cfg.Processing.Force
	if f.Changed("force") {
		force = opts.Force
	}
	jobs := cfg.Processing.Jobs
	if f.Changed("jobs") {
		jobs = opts.Jobs
	}

	dirs, err := subjectDirs(args)
	if err != nil {
		return err
	}

	p := &procedure.Pipeline{
		Params:      params,
		Atlas:       atlas,
		Cortical:    cortical,
		Subcortical: subcortical,
		Outputs:     layout.MergeOutputs(cfg.Layout.Outputs),
	}

	g.log.WithFields(logrus.Fields{
		"atlas":    atlas.Name,
		"subjects": len(dirs),
		"jobs":     jobs,
	}).Info("processing subjects")

	results, err := p.RunBatch(cmd.Context(), dirs, jobs, force)
	if g.DryRun {
		return err
	}
	if len(results) > 0 {
		if showErr := report.NewViewer(g.stdout, g.Plain).ShowManifests(results); showErr != nil && err == nil {
			err = showErr
		}
	}
	return err
}

// resolveAtlas starts from the configured atlas named by --atlas, if any,
// and replaces the files given on the command line.
func resolveAtlas(g *GlobalOptions, opts RunOptions) (*models.Atlas, error) {
	if opts.Atlas == "" {
		return nil, errors.Fatal("--atlas is required")
	}

	atlas, err := g.cfg.Atlas(opts.Atlas)
	if err != nil {
		atlas = &models.Atlas{Name: opts.Atlas}
	}

	for _, o := range []struct {
		value string
		field *string
	}{
		{opts.LhGCS, &atlas.LhGCS},
		{opts.RhGCS, &atlas.RhGCS},
		{opts.SubcortexGCS, &atlas.SubcortexGCS},
		{opts.LUT, &atlas.LUT},
	} {
		if o.value != "" {
			*o.field = o.value
		}
	}

	if !atlas.Has(models.KeyLhGCS) && !atlas.Has(models.KeyRhGCS) &&
		!atlas.Has(models.KeySubcortexGCS) && !atlas.Has(models.KeyLUT) {
		return nil, errors.Fatalf("atlas %q is not configured and no atlas files were given", opts.Atlas)
	}
	return atlas, nil
}

// subjectDirs accepts directories as well as subject ids below $SUBJECTS_DIR.
func subjectDirs(args []string) ([]string, error) {
	subjectsDir := os.Getenv("SUBJECTS_DIR")
	dirs := make([]string, 0, len(args))
	for _, arg := range args {
		if fi, err := os.Stat(arg); err == nil && fi.IsDir() {
			dirs = append(dirs, arg)
			continue
		}
		if subjectsDir != "" {
			dir := filepath.Join(subjectsDir, arg)
			if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
				dirs = append(dirs, dir)
				continue
			}
		}
		return nil, errors.Fatalf("subject %q not found", arg)
	}
	return dirs, nil
}
