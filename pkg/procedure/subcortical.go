package procedure

import (
	"context"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
	"surfparcel/pkg/freesurfer"
	"surfparcel/pkg/layout"
	"surfparcel/pkg/stats"
)

// Subcortical maps the volumetric classifier of an atlas onto a subject.
type Subcortical struct {
	*RegisterParcellation
}

// NewSubcortical validates that l and atlas provide what the subcortical
// registration needs.
func NewSubcortical(l *layout.Layout, atlas *models.Atlas, params Params) (*Subcortical, error) {
	base, err := newRegisterParcellation(l, atlas, params,
		[]string{layout.Brain, layout.TalairachXfm, layout.Norm},
		[]string{models.KeySubcortexGCS, models.KeyLUT},
	)
	if err != nil {
		return nil, err
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	return &Subcortical{base}, nil
}

func (s *Subcortical) Name() string { return "subcortical" }

// SegmentationPath is mri/subcortex.<atlas>.mgz.
func (s *Subcortical) SegmentationPath() string {
	return s.Layout.Path("mri", "subcortex."+s.Atlas.Name+".mgz")
}

// StatsPath is stats/subcortex.<atlas>.stats.
func (s *Subcortical) StatsPath() string {
	return s.Layout.Path("stats", "subcortex."+s.Atlas.Name+".stats")
}

// CSVPath is stats/subcortex.<atlas>.roi_stats.csv.
func (s *Subcortical) CSVPath() string {
	return s.Layout.Path("stats", "subcortex."+s.Atlas.Name+".roi_stats.csv")
}

func (s *Subcortical) layoutPath(key string) string {
	o, _ := s.Layout.Get(key)
	return o.Path
}

// MapToSubject labels the subject volume with mri_ca_label.
func (s *Subcortical) MapToSubject(ctx context.Context, force bool) (string, error) {
	out := s.SegmentationPath()
	log := s.log.WithField("step", "map")
	if s.skip(log, force, out) {
		return out, nil
	}

	log.Info("mapping atlas to subject")
	cmd := &freesurfer.MRICALabel{
		Options:   s.options(),
		In:        s.layoutPath(layout.Brain),
		Transform: s.layoutPath(layout.TalairachXfm),
		Template:  s.Atlas.SubcortexGCS,
		Out:       out,
	}
	if err := s.run(ctx, cmd); err != nil {
		return "", errors.Wrapf(err, "mapping %s to subject", s.Atlas.Name)
	}
	return out, nil
}

// CalculateStatistics runs mri_segstats on the subcortical segmentation,
// using norm.mgz for partial volume correction.
func (s *Subcortical) CalculateStatistics(ctx context.Context, force bool) (string, error) {
	out := s.StatsPath()
	log := s.log.WithField("step", "stats")
	if s.skip(log, force, out) {
		return out, nil
	}

	seg, err := s.input(layout.SubcortexSegmentation, "", s.SegmentationPath())
	if err != nil {
		return "", err
	}

	log.Info("calculating parcellation statistics")
	cmd := &freesurfer.MRISegStats{
		Options:       s.options(),
		Segmentation:  seg,
		CTab:          s.Atlas.LUT,
		ExcludeIDs:    s.Params.ExcludeIDs,
		PartialVolume: s.layoutPath(layout.Norm),
		Out:           out,
	}
	if err := s.run(ctx, cmd); err != nil {
		return "", errors.Wrapf(err, "statistics of %s", s.Atlas.Name)
	}
	return out, nil
}

// ConvertStats writes the regional table of the statistics as CSV.
func (s *Subcortical) ConvertStats(force bool) (string, error) {
	out := s.CSVPath()
	log := s.log.WithField("step", "convert")
	if s.Params.DryRun || s.skip(log, force, out) {
		return out, nil
	}

	in, err := s.input(layout.SubcortexStats, "", s.StatsPath())
	if err != nil {
		return "", err
	}

	log.Info("converting statistics to tables")
	ss, err := stats.ReadSubCorticalStats(in)
	if err != nil {
		return "", err
	}
	if err := stats.WriteCSVFile(out, ss.StructuralMeasurements); err != nil {
		return "", err
	}
	return out, nil
}

// Run maps, measures and converts, recording every file in the layout.
func (s *Subcortical) Run(ctx context.Context, force bool) error {
	for _, key := range []string{layout.SubcortexSegmentation, layout.SubcortexStats, layout.SubcortexRegionalCSV} {
		s.Layout.Reset(key)
	}

	seg, err := s.MapToSubject(ctx, force)
	if err != nil {
		return err
	}
	s.Layout.Set(layout.SubcortexSegmentation, seg)

	st, err := s.CalculateStatistics(ctx, force)
	if err != nil {
		return err
	}
	s.Layout.Set(layout.SubcortexStats, st)

	regional, err := s.ConvertStats(force)
	if err != nil {
		return err
	}
	s.Layout.Set(layout.SubcortexRegionalCSV, regional)
	return nil
}
