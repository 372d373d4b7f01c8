package freesurfer

import (
	"context"
	"path/filepath"
	"strconv"

	"surfparcel/internal/errors"
)

// MRICALabel labels a volume with a Gaussian classifier atlas, producing a
// subcortical segmentation.
//
//	mri_ca_label [-align] [-aseg A] [-r I] [-l L] [-nobigventricles] [-prior P] in transform template out
type MRICALabel struct {
	Options

	// In is the intensity volume, usually brain.mgz or norm.mgz.
	In string

	// Transform maps the subject to atlas space (talairach.m3z).
	Transform string

	// Template is the .gcs classifier.
	Template string

	// Out is the segmentation volume.
	Out string

	// Align aligns the atlas means before labeling (-align).
	Align bool

	// Aseg restricts labeling using an existing segmentation (-aseg).
	Aseg string

	// Intensities is a precomputed intensity file (-r).
	Intensities string

	// Label is an input label file (-l).
	Label string

	// NoBigVentricles disables the big ventricles option (-nobigventricles).
	NoBigVentricles bool

	// Prior sets the prior weight (-prior).
	Prior *float64
}

func (c *MRICALabel) Validate() error {
	for _, f := range []struct {
		name, path string
		mandatory  bool
	}{
		{"in_file", c.In, true},
		{"transform", c.Transform, true},
		{"template", c.Template, true},
		{"aseg", c.Aseg, false},
		{"intensities", c.Intensities, false},
		{"label", c.Label, false},
	} {
		if err := requireFile(f.name, f.path, f.mandatory); err != nil {
			return err
		}
	}
	return requireValue("out_file", c.Out)
}

func (c *MRICALabel) Program() string { return "mri_ca_label" }

func (c *MRICALabel) Args() []string {
	var args []string
	if c.Align {
		args = append(args, "-align")
	}
	if c.Aseg != "" {
		args = append(args, "-aseg", c.Aseg)
	}
	if c.Intensities != "" {
		args = append(args, "-r", c.Intensities)
	}
	if c.Label != "" {
		args = append(args, "-l", c.Label)
	}
	if c.NoBigVentricles {
		args = append(args, "-nobigventricles")
	}
	if c.Prior != nil {
		args = append(args, "-prior", strconv.FormatFloat(*c.Prior, 'f', 1, 64))
	}
	return append(args, c.In, c.Transform, c.Template, c.Out)
}

func (c *MRICALabel) Command() (*Command, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "mri_ca_label")
	}
	return &Command{Program: c.Program(), Args: c.Args(), Env: c.env()}, nil
}

func (c *MRICALabel) CommandLine() string {
	return (&Command{Program: c.Program(), Args: c.Args()}).String()
}

func (c *MRICALabel) Run(ctx context.Context, r Runner) error {
	cmd, err := c.Command()
	if err != nil {
		return err
	}
	if err := mkdirFor(outDir(c.Out)); err != nil {
		return err
	}
	return r.Run(ctx, cmd)
}

// OutFile is the absolute path of Out.
func (c *MRICALabel) OutFile() string {
	abs, err := filepath.Abs(c.Out)
	if err != nil {
		return c.Out
	}
	return abs
}
