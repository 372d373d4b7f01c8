package freesurfer

import (
	"context"
	"strconv"

	"surfparcel/internal/errors"
)

// MRISegStats computes summary statistics for every label of a
// segmentation volume.
//
//	mri_segstats --ctab C --seg S [--excludeid i ...] [--pv P] --sum out
type MRISegStats struct {
	Options

	// Segmentation is the labeled volume.
	Segmentation string

	// CTab is the color table naming each label.
	CTab string

	// ExcludeIDs are labels left out of the table.
	ExcludeIDs []int

	// PartialVolume compensates for partial voluming (--pv).
	PartialVolume string

	// Out is the ASCII summary file (--sum).
	Out string
}

func (c *MRISegStats) Validate() error {
	if err := requireValue("segmentation", c.Segmentation); err != nil {
		return err
	}
	if err := requireFile("ctab", c.CTab, true); err != nil {
		return err
	}
	if err := requireValue("out_file", c.Out); err != nil {
		return err
	}
	return requireFile("partial_volume", c.PartialVolume, false)
}

func (c *MRISegStats) Program() string { return "mri_segstats" }

func (c *MRISegStats) Args() []string {
	args := []string{"--ctab", c.CTab, "--seg", c.Segmentation}
	if len(c.ExcludeIDs) > 0 {
		args = append(args, "--excludeid")
		for _, id := range c.ExcludeIDs {
			args = append(args, strconv.Itoa(id))
		}
	}
	if c.PartialVolume != "" {
		args = append(args, "--pv", c.PartialVolume)
	}
	return append(args, "--sum", c.Out)
}

func (c *MRISegStats) Command() (*Command, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "mri_segstats")
	}
	return &Command{Program: c.Program(), Args: c.Args(), Env: c.env()}, nil
}

func (c *MRISegStats) CommandLine() string {
	return (&Command{Program: c.Program(), Args: c.Args()}).String()
}

func (c *MRISegStats) Run(ctx context.Context, r Runner) error {
	cmd, err := c.Command()
	if err != nil {
		return err
	}
	if err := mkdirFor(outDir(c.Out)); err != nil {
		return err
	}
	return r.Run(ctx, cmd)
}

// OutFile is Out as given.
func (c *MRISegStats) OutFile() string { return c.Out }
