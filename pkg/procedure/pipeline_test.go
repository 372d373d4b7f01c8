package procedure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfparcel/internal/testutil"
	"surfparcel/pkg/layout"
)

func TestPipelineProcessWritesManifest(t *testing.T) {
	f := newFixture(t)
	p := &Pipeline{Params: f.params, Atlas: f.atlas, Cortical: true, Subcortical: true}

	m, err := p.Process(context.Background(), f.dir, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"cortical", "subcortical"}, m.Procedures)
	assert.Len(t, f.runner.Commands(), 6)

	stored, err := ReadManifest(ManifestPath(f.layout, "DKT"))
	require.NoError(t, err)

	_, err = uuid.Parse(stored.RunID)
	assert.NoError(t, err)
	assert.Equal(t, m.RunID, stored.RunID)
	assert.Equal(t, "sub-01", stored.Subject)
	assert.Equal(t, "DKT", stored.Atlas)
	assert.Equal(t, "7.4.1", stored.FreeSurferVersion)
	assert.Equal(t, 42, stored.Seed)
	assert.False(t, stored.FinishedAt.Before(stored.StartedAt))

	assert.Equal(t, filepath.Join(f.dir, "label", "lh.DKT.annot"), stored.Outputs["cortical_annotation.lh"])
	assert.Equal(t, filepath.Join(f.dir, "stats", "subcortex.DKT.roi_stats.csv"), stored.Outputs[layout.SubcortexRegionalCSV])
	assert.Len(t, stored.Keys(), 11)

	require.Len(t, stored.Checksums, 11)
	for key, path := range stored.Outputs {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%016x", xxhash.Sum64(data)), stored.Checksums[key], key)
	}
}

func TestChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	testutil.WriteFile(t, path, "")

	sum, err := Checksum(path)
	require.NoError(t, err)
	assert.Equal(t, "ef46db3751d8e999", sum)

	_, err = Checksum(path + ".missing")
	assert.Error(t, err)
}

func TestPipelineNothingSelected(t *testing.T) {
	f := newFixture(t)
	p := &Pipeline{Params: f.params, Atlas: f.atlas}

	_, err := p.Process(context.Background(), f.dir, false)
	assert.Error(t, err)
}

func TestPipelineFailsBeforeRunningAnything(t *testing.T) {
	f := newFixture(t, withoutFile("mri/brain.mgz")...)
	p := &Pipeline{Params: f.params, Atlas: f.atlas, Cortical: true, Subcortical: true}

	_, err := p.Process(context.Background(), f.dir, false)
	assert.ErrorIs(t, err, ErrMissingOutput)
	assert.Empty(t, f.runner.Commands(), "cortical must not run when subcortical cannot")
}

func TestRunBatch(t *testing.T) {
	f := newFixture(t)
	var dirs []string
	for i := 2; i <= 4; i++ {
		dirs = append(dirs, testutil.NewSubject(t, f.root, fmt.Sprintf("sub-%02d", i), testutil.ReconFiles...))
	}
	dirs = append(dirs, f.dir)

	p := &Pipeline{Params: f.params, Atlas: f.atlas, Cortical: true}
	results, err := p.RunBatch(context.Background(), dirs, 2, false)
	require.NoError(t, err)

	require.Len(t, results, len(dirs))
	for i, res := range results {
		assert.Equal(t, dirs[i], res.SubjectDir)
		assert.Equal(t, filepath.Base(dirs[i]), res.Manifest.Subject)
	}
	assert.Len(t, f.runner.Commands(), 4*len(dirs))
}

func TestRunBatchStopsOnFailure(t *testing.T) {
	f := newFixture(t)
	broken := testutil.NewSubject(t, f.root, "sub-02")

	p := &Pipeline{Params: f.params, Atlas: f.atlas, Cortical: true}
	_, err := p.RunBatch(context.Background(), []string{broken, f.dir}, 1, false)
	assert.ErrorIs(t, err, ErrMissingOutput)
}

func TestRunBatchKeepsFinishedSubjects(t *testing.T) {
	f := newFixture(t)
	broken := testutil.NewSubject(t, f.root, "sub-02")

	p := &Pipeline{Params: f.params, Atlas: f.atlas, Cortical: true}
	results, err := p.RunBatch(context.Background(), []string{f.dir, broken}, 1, false)
	assert.ErrorIs(t, err, ErrMissingOutput)

	require.Len(t, results, 1)
	assert.Equal(t, f.dir, results[0].SubjectDir)
	assert.Equal(t, "sub-01", results[0].Manifest.Subject)
	assert.FileExists(t, ManifestPath(f.layout, "DKT"))
}
