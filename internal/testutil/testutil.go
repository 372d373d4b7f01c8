// Package testutil builds small recon-all subject trees and stats files for
// tests. None of the files carry real imaging data.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ReconFiles is the set of files a finished recon-all run leaves behind
// that the parcellation procedures read.
var ReconFiles = []string{
	"mri/brain.mgz",
	"mri/norm.mgz",
	"mri/aseg.mgz",
	"mri/aseg.presurf.mgz",
	"mri/transforms/talairach.m3z",
	"surf/lh.sphere.reg",
	"surf/rh.sphere.reg",
	"surf/lh.smoothwm",
	"surf/rh.smoothwm",
	"surf/lh.curv",
	"surf/rh.curv",
	"surf/lh.sulc",
	"surf/rh.sulc",
	"label/lh.cortex.label",
	"label/rh.cortex.label",
}

// EnvFile is a trimmed scripts/recon-all.env.
const EnvFile = `FREESURFER_HOME=/usr/local/freesurfer
FS_RECON_VERSION=7.4.1 (freesurfer-linux-ubuntu22_x86_64-7.4.1-20230613-7eb8460)
SUBJECTS_DIR=/data/subjects
`

// UnknownArgs is a recon-all command line as stored in scripts/unknown-args.txt.
const UnknownArgs = "-all\n-s sub-01\n-i T1w.nii.gz\n"

// NewSubject creates subjectsDir/id with recon-all metadata and files.
// It returns the subject directory.
func NewSubject(t testing.TB, subjectsDir, id string, files ...string) string {
	t.Helper()
	dir := filepath.Join(subjectsDir, id)
	WriteFile(t, filepath.Join(dir, "scripts", "recon-all.env"), EnvFile)
	WriteFile(t, filepath.Join(dir, "scripts", "unknown-args.txt"), UnknownArgs)
	for _, f := range files {
		WriteFile(t, filepath.Join(dir, f), "")
	}
	return dir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// CorticalStats is an abbreviated output of mris_anatomical_stats.
const CorticalStats = `# Table of FreeSurfer cortical parcellation anatomical statistics
#
# CreationTime 2024/01/10-12:00:00-GMT
# generating_program mris_anatomical_stats
# subjectname sub-01
# hemi lh
# AnnotationFile ../label/lh.DKT.annot
# Measure Cortex, NumVert, Number of Vertices, 134384, unitless
# Measure Cortex, WhiteSurfArea, White Surface Total Area, 91553.1, mm^2
# Measure Cortex, MeanThickness, Mean Thickness, 2.49586, mm
# NTableCols 10
# ColHeaders StructName NumVert SurfArea GrayVol ThickAvg ThickStd MeanCurv GausCurv FoldInd CurvInd
bankssts                                 1391    918   2281  2.503 0.458     0.104     0.018       10     1.0
caudalanteriorcingulate                  1046    701   2102  2.699 0.723     0.130     0.022       15     0.9
caudalmiddlefrontal                      3433   2281   6177  2.648 0.490     0.116     0.021       32     2.9
`

// SubcorticalStats is an abbreviated output of mri_segstats.
const SubcorticalStats = `# Title Segmentation Statistics
#
# generating_program mri_segstats
# cmdline mri_segstats --seg mri/subcortex.DKT.mgz --sum stats/subcortex.DKT.stats
# Measure BrainSeg, BrainSegVol, Brain Segmentation Volume, 1164377.000000, mm^3
# NRows 3
# NTableCols 10
# ColHeaders  Index SegId NVoxels Volume_mm3 StructName normMean normStdDev normMin normMax normRange
  1   4     6452     6467.6  Left-Lateral-Ventricle   36.2  12.1   14.0   90.0   76.0
  2  10     7812     7800.3  Left-Thalamus            89.5   9.2   37.0  112.0   75.0
  3  17     4105     4098.1  Left-Hippocampus         76.8  10.4   32.0  106.0   74.0
`
