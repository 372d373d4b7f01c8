package freesurfer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
	"surfparcel/internal/testutil"
)

var (
	_ Interface = (*MRIsCALabel)(nil)
	_ Interface = (*MRIsAnatomicalStats)(nil)
	_ Interface = (*MRISegStats)(nil)
	_ Interface = (*MRICALabel)(nil)
)

// inTempDir changes into a fresh directory holding empty files with the given names.
func inTempDir(t *testing.T, names ...string) string {
	dir := t.TempDir()
	for _, name := range names {
		testutil.WriteFile(t, filepath.Join(dir, name), "")
	}
	t.Chdir(dir)
	return dir
}

func intPtr(i int) *int { return &i }

func TestMRIsCALabelCommandLine(t *testing.T) {
	inTempDir(t, "lh.pial", "im1.nii", "lh.cortex.label", "aseg.presurf.mgz")

	c := &MRIsCALabel{
		SubjectID:  "test",
		Hemisphere: models.Left,
		CanonSurf:  "lh.pial",
		Curv:       "lh.pial",
		Sulc:       "lh.pial",
		Classifier: "im1.nii",
		SmoothWM:   "lh.pial",
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, "mris_ca_label test lh lh.pial im1.nii lh.aparc.annot", c.CommandLine())

	c.Label = "lh.cortex.label"
	c.Aseg = "aseg.presurf.mgz"
	c.Seed = intPtr(1234)
	c.Out = "lh.DKT.annot"
	want := []string{
		"-aseg", "aseg.presurf.mgz",
		"-l", "lh.cortex.label",
		"-seed", "1234",
		"test", "lh", "lh.pial", "im1.nii", "lh.DKT.annot",
	}
	if diff := cmp.Diff(want, c.Args()); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}
}

func TestMRIsCALabelDefaults(t *testing.T) {
	inTempDir(t, "rh.sphere.reg", "rh.gcs")

	c := &MRIsCALabel{Hemisphere: models.Right, CanonSurf: "rh.sphere.reg", Classifier: "rh.gcs", Seed: intPtr(0)}
	assert.Equal(t, "mris_ca_label -seed 0 subject_id rh rh.sphere.reg rh.gcs rh.aparc.annot", c.CommandLine())

	c.SubjectsDir = "/data/subjects"
	assert.Equal(t, "/data/subjects/subject_id/label/rh.aparc.annot", c.OutFile())

	cmd, err := c.Command()
	require.NoError(t, err)
	assert.Equal(t, []string{"SUBJECTS_DIR=/data/subjects"}, cmd.Env)
}

func TestMRIsCALabelValidate(t *testing.T) {
	inTempDir(t, "lh.sphere.reg", "lh.gcs")

	for _, test := range []struct {
		name string
		cmd  MRIsCALabel
		want error
	}{
		{"bad hemisphere", MRIsCALabel{Hemisphere: "xh", CanonSurf: "lh.sphere.reg", Classifier: "lh.gcs"}, ErrInvalidInput},
		{"no canonsurf", MRIsCALabel{Hemisphere: models.Left, Classifier: "lh.gcs"}, ErrMissingInput},
		{"missing classifier", MRIsCALabel{Hemisphere: models.Left, CanonSurf: "lh.sphere.reg", Classifier: "nope.gcs"}, ErrMissingInput},
		{"missing label", MRIsCALabel{Hemisphere: models.Left, CanonSurf: "lh.sphere.reg", Classifier: "lh.gcs", Label: "nope.label"}, ErrMissingInput},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := test.cmd.Validate()
			assert.True(t, errors.Is(err, test.want), "got %v", err)

			r := &RecordingRunner{}
			assert.Error(t, test.cmd.Run(context.Background(), r))
			assert.Empty(t, r.Commands(), "nothing runs when validation fails")
		})
	}
}

func TestMRIsCALabelRunCreatesLabelDir(t *testing.T) {
	dir := inTempDir(t, "lh.sphere.reg", "lh.gcs")
	subjects := filepath.Join(dir, "subjects")

	c := &MRIsCALabel{
		Options:    Options{SubjectsDir: subjects, NumThreads: 2},
		SubjectID:  "sub-01",
		Hemisphere: models.Left,
		CanonSurf:  "lh.sphere.reg",
		Classifier: "lh.gcs",
	}
	r := &RecordingRunner{}
	require.NoError(t, c.Run(context.Background(), r))

	assert.DirExists(t, filepath.Join(subjects, "sub-01", "label"))
	require.Len(t, r.Commands(), 1)
	assert.Equal(t, []string{"SUBJECTS_DIR=" + subjects, "OMP_NUM_THREADS=2"}, r.Commands()[0].Env)
}

func TestMRIsCALabelCopyInputs(t *testing.T) {
	src := t.TempDir()
	for _, name := range []string{"lh.sphere.reg", "lh.gcs", "smooth", "curvature", "sulcal"} {
		testutil.WriteFile(t, filepath.Join(src, name), name)
	}
	work := t.TempDir()

	c := &MRIsCALabel{
		SubjectID:  "sub-01",
		Hemisphere: models.Left,
		CanonSurf:  filepath.Join(src, "lh.sphere.reg"),
		Classifier: filepath.Join(src, "lh.gcs"),
		SmoothWM:   filepath.Join(src, "smooth"),
		Curv:       filepath.Join(src, "curvature"),
		Sulc:       filepath.Join(src, "sulcal"),
		CopyInputs: true,
		WorkDir:    work,
	}
	r := &RecordingRunner{}
	require.NoError(t, c.Run(context.Background(), r))

	surf := filepath.Join(work, "sub-01", "surf")
	for name, content := range map[string]string{
		"lh.sphere.reg": "lh.sphere.reg",
		"lh.smoothwm":   "smooth",
		"lh.curv":       "curvature",
		"lh.sulc":       "sulcal",
	} {
		data, err := os.ReadFile(filepath.Join(surf, name))
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	}

	require.Len(t, r.Commands(), 1)
	assert.Contains(t, r.Commands()[0].Env, "SUBJECTS_DIR="+work)
	assert.Equal(t, filepath.Join(work, "sub-01", "label", "lh.aparc.annot"), c.OutFile())
}

func TestMRIsAnatomicalStatsCommandLine(t *testing.T) {
	inTempDir(t, "lh.cortex.label", "lh.aparc.annot")

	c := &MRIsAnatomicalStats{
		SubjectID:  "test",
		Hemisphere: models.Left,
		Cortex:     "lh.cortex.label",
		Annot:      "lh.aparc.annot",
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, "mris_anatomical_stats -b -cortex lh.cortex.label -a lh.aparc.annot -f lh.aparc.stats test lh", c.CommandLine())

	c.MGZ = true
	c.DisableTabular = true
	c.Out = "stats/lh.DKT.stats"
	want := []string{"-cortex", "lh.cortex.label", "-a", "lh.aparc.annot", "-f", "stats/lh.DKT.stats", "-mgz", "test", "lh"}
	if diff := cmp.Diff(want, c.Args()); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}

	c.SubjectsDir = "/data"
	assert.Equal(t, "/data/test/stats/lh.DKT.stats", c.OutFile())
}

func TestMRIsAnatomicalStatsValidate(t *testing.T) {
	inTempDir(t, "lh.cortex.label")

	c := &MRIsAnatomicalStats{SubjectID: "test", Hemisphere: models.Left, Cortex: "lh.cortex.label", Annot: "lh.aparc.annot"}
	assert.True(t, errors.Is(c.Validate(), ErrMissingInput))

	c = &MRIsAnatomicalStats{Hemisphere: models.Left, Cortex: "lh.cortex.label"}
	assert.True(t, errors.Is(c.Validate(), ErrMissingInput))
}

func TestMRISegStatsCommandLine(t *testing.T) {
	inTempDir(t, "FreeSurferColorLUT.txt", "norm.mgz")

	c := &MRISegStats{
		Segmentation: "aseg.mgz",
		CTab:         "FreeSurferColorLUT.txt",
		Out:          "aseg.stats",
	}
	require.NoError(t, c.Validate(), "the segmentation is not required to exist yet")
	assert.Equal(t, "mri_segstats --ctab FreeSurferColorLUT.txt --seg aseg.mgz --sum aseg.stats", c.CommandLine())
	assert.Equal(t, "aseg.stats", c.OutFile())

	c.ExcludeIDs = []int{0, 24}
	c.PartialVolume = "norm.mgz"
	assert.Equal(t, "mri_segstats --ctab FreeSurferColorLUT.txt --seg aseg.mgz --excludeid 0 24 --pv norm.mgz --sum aseg.stats", c.CommandLine())

	c.Out = ""
	assert.True(t, errors.Is(c.Validate(), ErrMissingInput))
}

func TestMRICALabelCommandLine(t *testing.T) {
	inTempDir(t, "norm.mgz", "trans.mat", "Template_6.nii", "aseg.mgz")

	c := &MRICALabel{
		In:        "norm.mgz",
		Transform: "trans.mat",
		Template:  "Template_6.nii",
		Out:       "out.mgz",
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, "mri_ca_label norm.mgz trans.mat Template_6.nii out.mgz", c.CommandLine())

	prior := 0.5
	c.Align = true
	c.Aseg = "aseg.mgz"
	c.NoBigVentricles = true
	c.Prior = &prior
	assert.Equal(t, "mri_ca_label -align -aseg aseg.mgz -nobigventricles -prior 0.5 norm.mgz trans.mat Template_6.nii out.mgz", c.CommandLine())

	abs, err := filepath.Abs("out.mgz")
	require.NoError(t, err)
	assert.Equal(t, abs, c.OutFile())

	c.Template = "missing.gcs"
	assert.True(t, errors.Is(c.Validate(), ErrMissingInput))
}

func TestDryRunner(t *testing.T) {
	var buf bytes.Buffer
	r := &DryRunner{Out: &buf}
	require.NoError(t, r.Run(context.Background(), &Command{Program: "mri_segstats", Args: []string{"--seg", "a.mgz"}}))
	assert.Equal(t, "mri_segstats --seg a.mgz\n", buf.String())
}

func TestCopyToSubjectDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "lh.white")
	testutil.WriteFile(t, src, "first")
	subjects := t.TempDir()

	dst, err := CopyToSubjectDir(subjects, "sub-01", "surf", src, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(subjects, "sub-01", "surf", "lh.white"), dst)

	// an existing destination is kept
	testutil.WriteFile(t, src, "second")
	_, err = CopyToSubjectDir(subjects, "sub-01", "surf", src, "")
	require.NoError(t, err)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	dst, err = CopyToSubjectDir(subjects, "sub-01", "surf", "", "lh.curv")
	require.NoError(t, err)
	assert.Empty(t, dst)
}
