package procedure

import (
	"context"

	"github.com/sirupsen/logrus"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
	"surfparcel/pkg/freesurfer"
	"surfparcel/pkg/layout"
	"surfparcel/pkg/stats"
)

// Cortical maps the surface classifiers of an atlas onto both hemispheres
// of a subject.
type Cortical struct {
	*RegisterParcellation
}

// NewCortical validates that l and atlas provide what the cortical
// registration needs.
func NewCortical(l *layout.Layout, atlas *models.Atlas, params Params) (*Cortical, error) {
	base, err := newRegisterParcellation(l, atlas, params,
		[]string{layout.CortexLabel, layout.SurfReg},
		[]string{models.KeyRhGCS, models.KeyLhGCS, models.KeyLUT},
	)
	if err != nil {
		return nil, err
	}
	base.hemisphereKeys[layout.CortexLabel] = true
	base.hemisphereKeys[layout.SurfReg] = true

	if err := base.Validate(); err != nil {
		return nil, err
	}
	return &Cortical{base}, nil
}

func (c *Cortical) Name() string { return "cortical" }

// AnnotationPath is label/<hemi>.<atlas>.annot.
func (c *Cortical) AnnotationPath(h models.Hemisphere) string {
	return c.Layout.Path("label", string(h)+"."+c.Atlas.Name+".annot")
}

// StatsPath is stats/<hemi>.<atlas>.stats.
func (c *Cortical) StatsPath(h models.Hemisphere) string {
	return c.Layout.Path("stats", string(h)+"."+c.Atlas.Name+".stats")
}

// CSVPaths are the regional and global tables in the stats directory.
func (c *Cortical) CSVPaths(h models.Hemisphere) (regional, global string) {
	prefix := string(h) + "." + c.Atlas.Name
	return c.Layout.Path("stats", prefix+".roi_stats.csv"),
		c.Layout.Path("stats", prefix+".global_stats.csv")
}

func (c *Cortical) stepLog(h models.Hemisphere, step string) *logrus.Entry {
	return c.log.WithFields(logrus.Fields{"hemi": h, "step": step})
}

// MapToHemisphere labels one hemisphere with mris_ca_label. The annotation
// is kept when it exists, unless force is set.
func (c *Cortical) MapToHemisphere(ctx context.Context, h models.Hemisphere, force bool) (string, error) {
	gcs, err := c.Atlas.GCS(h)
	if err != nil {
		return "", err
	}
	out := c.AnnotationPath(h)
	log := c.stepLog(h, "map")
	if c.skip(log, force, out) {
		return out, nil
	}

	surfreg, _ := c.Layout.Get(layout.SurfReg)
	canonsurf, _ := surfreg.Hemi(h)
	cortex, _ := c.Layout.Get(layout.CortexLabel)
	label, _ := cortex.Hemi(h)
	seed := c.Params.Seed

	log.Info("mapping atlas to hemisphere")
	cmd := &freesurfer.MRIsCALabel{
		Options:    c.options(),
		SubjectID:  c.Layout.SubjectID(),
		Hemisphere: h,
		CanonSurf:  canonsurf,
		Classifier: gcs,
		Label:      label,
		Seed:       &seed,
		Out:        out,
	}
	if err := c.run(ctx, cmd); err != nil {
		return "", errors.Wrapf(err, "mapping %s to %s", c.Atlas.Name, h)
	}
	return out, nil
}

// CalculateStatistics runs mris_anatomical_stats on the hemisphere's
// annotation.
func (c *Cortical) CalculateStatistics(ctx context.Context, h models.Hemisphere, force bool) (string, error) {
	if !h.Valid() {
		return "", errors.Errorf("invalid hemisphere: %q", string(h))
	}
	out := c.StatsPath(h)
	log := c.stepLog(h, "stats")
	if c.skip(log, force, out) {
		return out, nil
	}

	annot, err := c.input(layout.CorticalAnnotation, h, c.AnnotationPath(h))
	if err != nil {
		return "", err
	}
	cortex, _ := c.Layout.Get(layout.CortexLabel)
	label, _ := cortex.Hemi(h)

	log.Info("calculating parcellation statistics")
	cmd := &freesurfer.MRIsAnatomicalStats{
		Options:    c.options(),
		SubjectID:  c.Layout.SubjectID(),
		Hemisphere: h,
		MGZ:        true,
		Cortex:     label,
		Annot:      annot,
		Out:        out,
	}
	if err := c.run(ctx, cmd); err != nil {
		return "", errors.Wrapf(err, "statistics of %s for %s", c.Atlas.Name, h)
	}
	return out, nil
}

// ConvertStats writes the regional and global tables of the hemisphere's
// statistics as CSV. Both tables are rewritten if either is missing.
func (c *Cortical) ConvertStats(h models.Hemisphere, force bool) (regional, global string, err error) {
	if !h.Valid() {
		return "", "", errors.Errorf("invalid hemisphere: %q", string(h))
	}
	regional, global = c.CSVPaths(h)
	log := c.stepLog(h, "convert")
	if c.Params.DryRun || c.skip(log, force, regional, global) {
		return regional, global, nil
	}

	in, err := c.input(layout.CorticalStats, h, c.StatsPath(h))
	if err != nil {
		return "", "", err
	}

	log.Info("converting statistics to tables")
	cs, err := stats.ReadCorticalStats(in)
	if err != nil {
		return "", "", err
	}
	if err := stats.WriteCSVFile(regional, cs.StructuralMeasurements); err != nil {
		return "", "", err
	}
	if err := stats.WriteCSVFile(global, cs.WholeBrainMeasurements); err != nil {
		return "", "", err
	}
	return regional, global, nil
}

// Run maps, measures and converts lh, then rh, recording every file in
// the layout.
func (c *Cortical) Run(ctx context.Context, force bool) error {
	for _, key := range []string{layout.CorticalAnnotation, layout.CorticalStats, layout.CorticalRegionalCSV, layout.CorticalGlobalCSV} {
		c.Layout.Reset(key)
	}

	for _, h := range models.Hemispheres {
		if err := ctx.Err(); err != nil {
			return err
		}

		annot, err := c.MapToHemisphere(ctx, h, force)
		if err != nil {
			return err
		}
		c.Layout.SetHemi(layout.CorticalAnnotation, h, annot)

		st, err := c.CalculateStatistics(ctx, h, force)
		if err != nil {
			return err
		}
		c.Layout.SetHemi(layout.CorticalStats, h, st)

		regional, global, err := c.ConvertStats(h, force)
		if err != nil {
			return err
		}
		c.Layout.SetHemi(layout.CorticalRegionalCSV, h, regional)
		c.Layout.SetHemi(layout.CorticalGlobalCSV, h, global)
	}
	return nil
}
