package freesurfer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
)

// DefaultSubjectID is used by mris_ca_label when no subject is given.
const DefaultSubjectID = "subject_id"

// MRIsCALabel assigns a neuroanatomical label to every cortical surface
// vertex of one hemisphere, using a classifier atlas (.gcs) trained on
// manually labeled subjects.
//
//	mris_ca_label [-aseg A] [-l L] [-seed N] subject hemi canonsurf classifier out
type MRIsCALabel struct {
	Options

	// SubjectID defaults to DefaultSubjectID.
	SubjectID  string
	Hemisphere models.Hemisphere

	// CanonSurf is the canonical (spherically registered) surface.
	CanonSurf string

	// Classifier is the .gcs atlas.
	Classifier string

	// SmoothWM, Curv and Sulc are read implicitly from the subject's surf
	// directory. They only matter with CopyInputs.
	SmoothWM string
	Curv     string
	Sulc     string

	// Out defaults to <hemi>.aparc.annot. mris_ca_label writes relative
	// names into the subject's label directory.
	Out string

	// Label restricts labeling to a cortex label (-l).
	Label string

	// Aseg is a volumetric segmentation used to refine the labels (-aseg).
	Aseg string

	// Seed makes the labeling reproducible (-seed).
	Seed *int

	// CopyInputs copies the surfaces into WorkDir/<subject>/surf and runs
	// with WorkDir as SUBJECTS_DIR.
	CopyInputs bool

	// WorkDir defaults to the current working directory.
	WorkDir string
}

func (c *MRIsCALabel) subjectID() string {
	if c.SubjectID == "" {
		return DefaultSubjectID
	}
	return c.SubjectID
}

func (c *MRIsCALabel) out() string {
	if c.Out == "" {
		return string(c.Hemisphere) + ".aparc.annot"
	}
	return c.Out
}

// Validate checks mandatory inputs and that input files exist.
func (c *MRIsCALabel) Validate() error {
	if !c.Hemisphere.Valid() {
		return errors.Wrapf(ErrInvalidInput, "hemisphere must be lh or rh, got %q", string(c.Hemisphere))
	}
	for _, f := range []struct {
		name, path string
		mandatory  bool
	}{
		{"canonsurf", c.CanonSurf, true},
		{"classifier", c.Classifier, true},
		{"smoothwm", c.SmoothWM, false},
		{"curv", c.Curv, false},
		{"sulc", c.Sulc, false},
		{"label", c.Label, false},
		{"aseg", c.Aseg, false},
	} {
		if err := requireFile(f.name, f.path, f.mandatory); err != nil {
			return err
		}
	}
	return nil
}

func (c *MRIsCALabel) Program() string { return "mris_ca_label" }

// Args returns the argument vector without the program name.
func (c *MRIsCALabel) Args() []string {
	var args []string
	if c.Aseg != "" {
		args = append(args, "-aseg", c.Aseg)
	}
	if c.Label != "" {
		args = append(args, "-l", c.Label)
	}
	if c.Seed != nil {
		args = append(args, "-seed", strconv.Itoa(*c.Seed))
	}
	return append(args, c.subjectID(), string(c.Hemisphere), c.CanonSurf, c.Classifier, c.out())
}

// Command validates the inputs and builds the invocation.
func (c *MRIsCALabel) Command() (*Command, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "mris_ca_label")
	}
	return &Command{Program: c.Program(), Args: c.Args(), Env: c.env()}, nil
}

// CommandLine is the command as a single string.
func (c *MRIsCALabel) CommandLine() string {
	return (&Command{Program: c.Program(), Args: c.Args()}).String()
}

// Run copies inputs when asked, makes sure the label directory exists and
// runs mris_ca_label.
func (c *MRIsCALabel) Run(ctx context.Context, r Runner) error {
	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "mris_ca_label")
	}

	if c.CopyInputs {
		workDir := c.WorkDir
		if workDir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return errors.Wrap(err, "mris_ca_label")
			}
			workDir = wd
		}
		c.SubjectsDir = workDir
		if err := c.copyInputs(); err != nil {
			return errors.Wrap(err, "mris_ca_label")
		}
	}

	if err := mkdirFor(filepath.Join(c.subjectsDir(), c.subjectID(), "label")); err != nil {
		return err
	}

	cmd, err := c.Command()
	if err != nil {
		return err
	}
	return r.Run(ctx, cmd)
}

func (c *MRIsCALabel) copyInputs() error {
	hemi := string(c.Hemisphere)
	for _, f := range []struct{ src, name string }{
		{c.CanonSurf, ""},
		{c.SmoothWM, hemi + ".smoothwm"},
		{c.Curv, hemi + ".curv"},
		{c.Sulc, hemi + ".sulc"},
	} {
		if _, err := CopyToSubjectDir(c.SubjectsDir, c.subjectID(), "surf", f.src, f.name); err != nil {
			return err
		}
	}
	return nil
}

// OutFile is where mris_ca_label writes the annotation.
func (c *MRIsCALabel) OutFile() string {
	return filepath.Join(c.subjectsDir(), c.subjectID(), "label", filepath.Base(c.out()))
}
