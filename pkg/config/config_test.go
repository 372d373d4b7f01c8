package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Processing.Seed)
	assert.False(t, cfg.Processing.Force)
	assert.True(t, cfg.Processing.Cortical)
	assert.True(t, cfg.Processing.Subcortical)
	assert.Equal(t, []int{0}, cfg.Processing.ExcludeIDs)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surfparcel.yaml")
	data := `
freesurfer:
  home: /opt/freesurfer
  numThreads: 4
processing:
  seed: 1234
  subcortical: false
atlases:
  - name: DKT
    lhGcs: /atlases/lh.DKTatlas.gcs
    rhGcs: /atlases/rh.DKTatlas.gcs
    lut: /atlases/DKT.ctab
layout:
  outputs:
    wm: mri/wm.mgz
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/freesurfer", cfg.FreeSurfer.Home)
	assert.Equal(t, 4, cfg.FreeSurfer.NumThreads)
	assert.Equal(t, 1234, cfg.Processing.Seed)
	assert.True(t, cfg.Processing.Cortical, "unset keys keep their default")
	assert.False(t, cfg.Processing.Subcortical)
	assert.Equal(t, "mri/wm.mgz", cfg.Layout.Outputs["wm"])

	atlas, err := cfg.Atlas("DKT")
	require.NoError(t, err)
	assert.Equal(t, "/atlases/lh.DKTatlas.gcs", atlas.LhGCS)
	assert.Empty(t, atlas.SubcortexGCS)

	_, err = cfg.Atlas("Destrieux")
	assert.Error(t, err)
}

func TestLoadConfigRejectsDuplicateAtlas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surfparcel.yaml")
	data := "atlases:\n  - name: a\n  - name: a\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "defined twice")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "surfparcel.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Processing, cfg.Processing)
}
