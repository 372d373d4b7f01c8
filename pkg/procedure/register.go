// Package procedure maps a trained atlas onto a subject: it labels the
// subject with the atlas classifiers, computes statistics for every label and
// converts the statistics to CSV tables.
package procedure

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
	"surfparcel/pkg/freesurfer"
	"surfparcel/pkg/layout"
)

// DefaultSeed is the mris_ca_label seed used when none is configured.
const DefaultSeed = 42

var (
	// ErrMissingOutput is returned when a recon-all file a procedure
	// depends on is absent.
	ErrMissingOutput = errors.New("missing required recon-all output")

	// ErrMissingAtlasFile is returned when the atlas lacks a file a
	// procedure depends on.
	ErrMissingAtlasFile = errors.New("missing required parcellation file")
)

// Params holds the settings shared by all procedures.
type Params struct {
	// Seed is passed to mris_ca_label.
	Seed int

	// NumThreads is exported as OMP_NUM_THREADS to every command.
	NumThreads int

	// ExcludeIDs are left out of the subcortical statistics. Nil means {0}.
	ExcludeIDs []int

	// Runner executes the FreeSurfer commands.
	Runner freesurfer.Runner

	// DryRun hands command lines to Runner without checking inputs and
	// skips every step that reads tool output.
	DryRun bool

	// Log receives progress messages.
	Log *logrus.Entry
}

// DefaultParams returns Params that run commands with an ExecRunner.
func DefaultParams() Params {
	log := logrus.NewEntry(logrus.StandardLogger())
	return Params{
		Seed:       DefaultSeed,
		ExcludeIDs: []int{0},
		Runner:     freesurfer.NewExecRunner(os.Getenv("FREESURFER_HOME"), log),
		Log:        log,
	}
}

// Procedure is one atlas-to-subject registration.
type Procedure interface {
	Name() string
	Run(ctx context.Context, force bool) error
}

// RegisterParcellation holds what every registration needs: the subject
// layout, the atlas and the keys both must provide.
type RegisterParcellation struct {
	Layout *layout.Layout
	Atlas  *models.Atlas
	Params Params

	// RequiredLayoutKeys must be present in the layout. Keys listed in
	// hemisphereKeys must be present for both hemispheres.
	RequiredLayoutKeys []string
	RequiredAtlasKeys  []string

	hemisphereKeys map[string]bool
	log            *logrus.Entry
}

func newRegisterParcellation(l *layout.Layout, atlas *models.Atlas, params Params, layoutKeys, atlasKeys []string) (*RegisterParcellation, error) {
	if l == nil || atlas == nil {
		return nil, errors.New("layout and atlas are required")
	}
	if params.Runner == nil {
		params.Runner = DefaultParams().Runner
	}
	if params.Log == nil {
		params.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if params.ExcludeIDs == nil {
		params.ExcludeIDs = []int{0}
	}

	r := &RegisterParcellation{
		Layout:             l,
		Atlas:              atlas,
		Params:             params,
		RequiredLayoutKeys: layoutKeys,
		RequiredAtlasKeys:  atlasKeys,
		hemisphereKeys:     make(map[string]bool),
		log: params.Log.WithFields(logrus.Fields{
			"subject": l.SubjectID(),
			"atlas":   atlas.Name,
		}),
	}
	return r, nil
}

// Validate checks that the layout and the atlas provide every required key.
func (r *RegisterParcellation) Validate() error {
	for _, key := range r.RequiredLayoutKeys {
		o, ok := r.Layout.Get(key)
		if !ok {
			return errors.Wrapf(ErrMissingOutput, "%s", key)
		}
		if !r.hemisphereKeys[key] {
			continue
		}
		for _, h := range models.Hemispheres {
			if _, ok := o.Hemi(h); !ok {
				return errors.Wrapf(ErrMissingOutput, "%s (%s)", key, h)
			}
		}
	}
	for _, key := range r.RequiredAtlasKeys {
		if !r.Atlas.Has(key) {
			return errors.Wrapf(ErrMissingAtlasFile, "%s", key)
		}
	}
	return nil
}

// exists reports whether a previous run left path behind.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// skip reports whether a step can reuse its existing outputs.
func (r *RegisterParcellation) skip(log *logrus.Entry, force bool, outputs ...string) bool {
	if force {
		return false
	}
	for _, out := range outputs {
		if !exists(out) {
			return false
		}
	}
	log.Debug("outputs exist, skipping")
	return true
}

// run executes a command builder with the configured runner.
func (r *RegisterParcellation) run(ctx context.Context, cmd freesurfer.Interface) error {
	if r.Params.DryRun {
		return r.Params.Runner.Run(ctx, &freesurfer.Command{Program: cmd.Program(), Args: cmd.Args()})
	}
	return cmd.Run(ctx, r.Params.Runner)
}

func (r *RegisterParcellation) options() freesurfer.Options {
	return freesurfer.Options{
		SubjectsDir: r.Layout.SubjectsDir(),
		NumThreads:  r.Params.NumThreads,
	}
}

// input returns the file recorded under key, falling back to the path the
// procedure itself would have written.
func (r *RegisterParcellation) input(key string, h models.Hemisphere, fallback string) (string, error) {
	if o, ok := r.Layout.Get(key); ok {
		if h == "" && o.Path != "" {
			return o.Path, nil
		}
		if p, ok := o.Hemi(h); ok {
			return p, nil
		}
	}
	if r.Params.DryRun || exists(fallback) {
		return fallback, nil
	}
	if h != "" {
		return "", errors.Wrapf(ErrMissingOutput, "%s (%s)", key, h)
	}
	return "", errors.Wrapf(ErrMissingOutput, "%s", key)
}
