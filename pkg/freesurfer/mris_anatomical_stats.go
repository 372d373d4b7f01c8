package freesurfer

import (
	"context"
	"path/filepath"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
)

// MRIsAnatomicalStats computes a table of anatomical statistics for each
// region of a cortical annotation.
//
//	mris_anatomical_stats -b -cortex C -a A -f out [-mgz] subject hemi
type MRIsAnatomicalStats struct {
	Options

	SubjectID  string
	Hemisphere models.Hemisphere

	// MGZ reads volumes in mgz format.
	MGZ bool

	// Cortex is the cortex label.
	Cortex string

	// Annot is the annotation to compute statistics for.
	Annot string

	// DisableTabular drops -b.
	DisableTabular bool

	// Out defaults to <hemi>.aparc.stats.
	Out string
}

func (c *MRIsAnatomicalStats) out() string {
	if c.Out == "" {
		return string(c.Hemisphere) + ".aparc.stats"
	}
	return c.Out
}

func (c *MRIsAnatomicalStats) Validate() error {
	if err := requireValue("subject_id", c.SubjectID); err != nil {
		return err
	}
	if !c.Hemisphere.Valid() {
		return errors.Wrapf(ErrInvalidInput, "hemisphere must be lh or rh, got %q", string(c.Hemisphere))
	}
	if err := requireFile("cortex", c.Cortex, true); err != nil {
		return err
	}
	return requireFile("annot", c.Annot, true)
}

func (c *MRIsAnatomicalStats) Program() string { return "mris_anatomical_stats" }

func (c *MRIsAnatomicalStats) Args() []string {
	var args []string
	if !c.DisableTabular {
		args = append(args, "-b")
	}
	args = append(args, "-cortex", c.Cortex, "-a", c.Annot, "-f", c.out())
	if c.MGZ {
		args = append(args, "-mgz")
	}
	return append(args, c.SubjectID, string(c.Hemisphere))
}

func (c *MRIsAnatomicalStats) Command() (*Command, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "mris_anatomical_stats")
	}
	return &Command{Program: c.Program(), Args: c.Args(), Env: c.env()}, nil
}

func (c *MRIsAnatomicalStats) CommandLine() string {
	return (&Command{Program: c.Program(), Args: c.Args()}).String()
}

// Run makes sure the label directory and the directory of Out exist, then
// runs mris_anatomical_stats.
func (c *MRIsAnatomicalStats) Run(ctx context.Context, r Runner) error {
	cmd, err := c.Command()
	if err != nil {
		return err
	}
	if err := mkdirFor(filepath.Join(c.subjectsDir(), c.SubjectID, "label"), outDir(c.out())); err != nil {
		return err
	}
	return r.Run(ctx, cmd)
}

// OutFile is the stats table in the subject's stats directory.
func (c *MRIsAnatomicalStats) OutFile() string {
	return filepath.Join(c.subjectsDir(), c.SubjectID, "stats", filepath.Base(c.out()))
}
