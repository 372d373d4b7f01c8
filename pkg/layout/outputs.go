package layout

// Keys of the recon-all outputs collected by default.
const (
	Brain        = "brain"
	Norm         = "norm"
	Aseg         = "aseg"
	AsegPresurf  = "aseg_presurf"
	TalairachXfm = "talairach_xfm"
	SurfReg      = "surfreg"
	CortexLabel  = "cortex_label"
	SmoothWM     = "smoothwm"
	Curv         = "curv"
	Sulc         = "sulc"
	White        = "white"
	Pial         = "pial"
	Thickness    = "thickness"
	AparcAnnot   = "aparc_annot"
	AparcStats   = "aparc_stats"
	AsegStats    = "aseg_stats"
)

// Keys of the outputs derived by the parcellation procedures.
const (
	CorticalAnnotation    = "cortical_annotation"
	CorticalStats         = "cortical_stats"
	CorticalRegionalCSV   = "cortical_stats_df.regional"
	CorticalGlobalCSV     = "cortical_stats_df.global"
	SubcortexSegmentation = "subcortex_segmentation"
	SubcortexStats        = "subcortex_stats"
	SubcortexRegionalCSV  = "subcortex_stats_df.regional"
)

// DefaultOutputs maps output keys to globs relative to the subject directory.
// A "?h." prefix yields one file per hemisphere.
func DefaultOutputs() map[string]string {
	return map[string]string{
		Brain:        "mri/brain.mgz",
		Norm:         "mri/norm.mgz",
		Aseg:         "mri/aseg.mgz",
		AsegPresurf:  "mri/aseg.presurf.mgz",
		TalairachXfm: "mri/transforms/talairach.m3z",
		SurfReg:      "surf/?h.sphere.reg",
		CortexLabel:  "label/?h.cortex.label",
		SmoothWM:     "surf/?h.smoothwm",
		Curv:         "surf/?h.curv",
		Sulc:         "surf/?h.sulc",
		White:        "surf/?h.white",
		Pial:         "surf/?h.pial",
		Thickness:    "surf/?h.thickness",
		AparcAnnot:   "label/?h.aparc.annot",
		AparcStats:   "stats/?h.aparc.stats",
		AsegStats:    "stats/aseg.stats",
	}
}

// MergeOutputs returns DefaultOutputs with extra added on top.
func MergeOutputs(extra map[string]string) map[string]string {
	res := DefaultOutputs()
	for k, v := range extra {
		res[k] = v
	}
	return res
}
