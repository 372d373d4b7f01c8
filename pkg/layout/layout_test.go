package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
	"surfparcel/internal/testutil"
)

func TestNewParsesRunMetadata(t *testing.T) {
	root := t.TempDir()
	dir := testutil.NewSubject(t, root, "sub-01")

	l, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, "sub-01", l.SubjectID())
	assert.Equal(t, root, l.SubjectsDir())
	assert.Equal(t, "7.4.1", l.Metadata().FreeSurferVersion)
	assert.Equal(t, "-all -s sub-01 -i T1w.nii.gz ", l.Metadata().CommandLine)
}

func TestNewFirstVersionLineWins(t *testing.T) {
	root := t.TempDir()
	dir := testutil.NewSubject(t, root, "sub-01")
	testutil.WriteFile(t, filepath.Join(dir, "scripts", "recon-all.env"),
		"FS_RECON_VERSION=7.3.2 extra\nFS_RECON_VERSION=6.0.0\n")

	l, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "7.3.2", l.Metadata().FreeSurferVersion)
}

func TestNewMissingMetadata(t *testing.T) {
	root := t.TempDir()
	dir := testutil.NewSubject(t, root, "sub-01")
	require.NoError(t, os.Remove(filepath.Join(dir, "scripts", "unknown-args.txt")))

	_, err := New(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingMetadata))

	_, err = New(filepath.Join(root, "does-not-exist"))
	assert.Error(t, err)
}

func TestCollectOutputs(t *testing.T) {
	root := t.TempDir()
	dir := testutil.NewSubject(t, root, "sub-01",
		"mri/brain.mgz",
		"surf/lh.sphere.reg",
		"surf/rh.sphere.reg",
		"label/lh.cortex.label",
	)

	l, err := New(dir)
	require.NoError(t, err)

	outputs, err := l.CollectOutputs(DefaultOutputs())
	require.NoError(t, err)

	// every key is recorded, present or not
	assert.Len(t, outputs, len(DefaultOutputs()))

	brain := outputs[Brain]
	assert.Equal(t, filepath.Join(dir, "mri", "brain.mgz"), brain.Path)
	assert.Nil(t, brain.Hemis)

	surfreg := outputs[SurfReg]
	assert.Empty(t, surfreg.Path)
	assert.True(t, surfreg.Complete())
	lh, ok := surfreg.Hemi(models.Left)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "surf", "lh.sphere.reg"), lh)

	cortex := outputs[CortexLabel]
	assert.True(t, cortex.Present())
	assert.False(t, cortex.Complete())
	_, ok = cortex.Hemi(models.Right)
	assert.False(t, ok)

	assert.False(t, outputs[Norm].Present())
	_, ok = l.Get(Norm)
	assert.False(t, ok)
}

func TestCollectOutputsUnknownPrefixIsPlain(t *testing.T) {
	root := t.TempDir()
	dir := testutil.NewSubject(t, root, "sub-01", "surf/xh.sphere.reg", "surf/lh.sphere.reg")

	l, err := New(dir)
	require.NoError(t, err)

	outputs, err := l.CollectOutputs(map[string]string{SurfReg: "surf/?h.sphere.reg"})
	require.NoError(t, err)

	o := outputs[SurfReg]
	assert.Equal(t, filepath.Join(dir, "surf", "xh.sphere.reg"), o.Path)
	assert.Len(t, o.Hemis, 1)
}

func TestCollectOutputsSeveralPlainMatches(t *testing.T) {
	root := t.TempDir()
	dir := testutil.NewSubject(t, root, "sub-01", "mri/b.mgz", "mri/a.mgz")

	l, err := New(dir)
	require.NoError(t, err)

	outputs, err := l.CollectOutputs(map[string]string{"volumes": "mri/*.mgz"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mri", "a.mgz"), outputs["volumes"].Path)
}

func TestCollectOutputsMixedMatches(t *testing.T) {
	root := t.TempDir()
	dir := testutil.NewSubject(t, root, "sub-01", "surf/lh.white", "surf/rh.white", "surf/white.ico", "surf/avg.white")

	l, err := New(dir)
	require.NoError(t, err)

	outputs, err := l.CollectOutputs(map[string]string{"white": "surf/*white*"})
	require.NoError(t, err)

	o := outputs["white"]
	assert.Equal(t, filepath.Join(dir, "surf", "avg.white"), o.Path)
	assert.Equal(t, map[models.Hemisphere]string{
		models.Left:  filepath.Join(dir, "surf", "lh.white"),
		models.Right: filepath.Join(dir, "surf", "rh.white"),
	}, o.Hemis)
}

func TestCollectOutputsBadPattern(t *testing.T) {
	root := t.TempDir()
	l, err := New(testutil.NewSubject(t, root, "sub-01"))
	require.NoError(t, err)

	_, err = l.CollectOutputs(map[string]string{"bad": "mri/[.mgz"})
	assert.Error(t, err)
}

func TestSetAndSetHemi(t *testing.T) {
	root := t.TempDir()
	l, err := New(testutil.NewSubject(t, root, "sub-01"))
	require.NoError(t, err)

	l.SetHemi(CorticalAnnotation, models.Left, "/x/lh.annot")
	first, _ := l.Get(CorticalAnnotation)
	l.SetHemi(CorticalAnnotation, models.Right, "/x/rh.annot")

	o, ok := l.Get(CorticalAnnotation)
	require.True(t, ok)
	assert.True(t, o.Complete())
	assert.Len(t, first.Hemis, 1, "earlier copies are not mutated")

	l.Set(SubcortexStats, "/x/subcortex.stats")
	o, ok = l.Get(SubcortexStats)
	require.True(t, ok)
	assert.Equal(t, "/x/subcortex.stats", o.Path)

	assert.Equal(t, []string{CorticalAnnotation, SubcortexStats}, l.Keys())

	l.Reset(SubcortexStats)
	_, ok = l.Get(SubcortexStats)
	assert.False(t, ok)
}

func TestMergeOutputs(t *testing.T) {
	merged := MergeOutputs(map[string]string{"wm": "mri/wm.mgz", Brain: "mri/brainmask.mgz"})
	assert.Equal(t, "mri/wm.mgz", merged["wm"])
	assert.Equal(t, "mri/brainmask.mgz", merged[Brain])
	assert.Equal(t, "mri/norm.mgz", merged[Norm])
}
