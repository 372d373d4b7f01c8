package models

import (
	"surfparcel/internal/errors"
)

// Hemisphere identifies one cortical hemisphere by its FreeSurfer prefix
type Hemisphere string

const (
	Left  Hemisphere = "lh"
	Right Hemisphere = "rh"
)

// Hemispheres lists both hemispheres in the order recon-all processes them
var Hemispheres = []Hemisphere{Left, Right}

// ParseHemisphere converts "lh" or "rh" into a Hemisphere
func ParseHemisphere(s string) (Hemisphere, error) {
	h := Hemisphere(s)
	if !h.Valid() {
		return "", errors.Errorf("invalid hemisphere: %q", s)
	}
	return h, nil
}

// Valid reports whether h is lh or rh
func (h Hemisphere) Valid() bool {
	return h == Left || h == Right
}

func (h Hemisphere) String() string {
	return string(h)
}

// Atlas keys used when checking which files a procedure needs.
const (
	KeyLhGCS        = "lh_gcs"
	KeyRhGCS        = "rh_gcs"
	KeySubcortexGCS = "subcortex_gcs"
	KeyLUT          = "lut"
)

// Atlas represents a trained parcellation bundle that can be mapped onto a subject
type Atlas struct {
	// Name is used to name every derived file (e.g. lh.<Name>.annot)
	Name string `yaml:"name"`

	// LhGCS is the left hemisphere surface classifier
	LhGCS string `yaml:"lhGcs,omitempty"`

	// RhGCS is the right hemisphere surface classifier
	RhGCS string `yaml:"rhGcs,omitempty"`

	// SubcortexGCS is the volumetric classifier used by mri_ca_label
	SubcortexGCS string `yaml:"subcortexGcs,omitempty"`

	// LUT is the FreeSurfer color table describing the atlas labels
	LUT string `yaml:"lut,omitempty"`
}

// File returns the path stored under key, or "" when the atlas lacks it
func (a *Atlas) File(key string) string {
	switch key {
	case KeyLhGCS:
		return a.LhGCS
	case KeyRhGCS:
		return a.RhGCS
	case KeySubcortexGCS:
		return a.SubcortexGCS
	case KeyLUT:
		return a.LUT
	}
	return ""
}

// Has reports whether the atlas provides a file for key
func (a *Atlas) Has(key string) bool {
	return a.File(key) != ""
}

// GCS returns the surface classifier for the given hemisphere
func (a *Atlas) GCS(h Hemisphere) (string, error) {
	switch h {
	case Left:
		return a.LhGCS, nil
	case Right:
		return a.RhGCS, nil
	}
	return "", errors.Errorf("invalid hemisphere: %q", string(h))
}
