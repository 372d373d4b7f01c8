// Package layout parses the subject directory written by FreeSurfer's
// recon-all into a map of named outputs.
package layout

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
)

// MetadataDirName is the recon-all directory holding run metadata.
const MetadataDirName = "scripts"

// ErrMissingMetadata is returned when recon-all run metadata cannot be read.
var ErrMissingMetadata = errors.New("missing recon-all metadata")

// Metadata describes the recon-all run that produced the subject directory.
type Metadata struct {
	FreeSurferVersion string `yaml:"freesurferVersion"`
	CommandLine       string `yaml:"commandLine"`
}

// Output is a recon-all or derived file. Hemisphere-specific outputs use
// Hemis, everything else uses Path. The zero Output is an absent file.
type Output struct {
	Path  string
	Hemis map[models.Hemisphere]string
}

// Present reports whether at least one file was found.
func (o Output) Present() bool {
	return o.Path != "" || len(o.Hemis) > 0
}

// Hemi returns the file recorded for h.
func (o Output) Hemi(h models.Hemisphere) (string, bool) {
	p, ok := o.Hemis[h]
	return p, ok && p != ""
}

// Complete reports whether the output exists for both hemispheres.
func (o Output) Complete() bool {
	for _, h := range models.Hemispheres {
		if _, ok := o.Hemi(h); !ok {
			return false
		}
	}
	return true
}

// Layout is the parsed recon-all output tree of a single subject.
type Layout struct {
	subjectDir string
	metadata   Metadata
	outputs    map[string]Output
}

// New reads the run metadata of the recon-all subject at subjectDir.
func New(subjectDir string) (*Layout, error) {
	abs, err := filepath.Abs(subjectDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving subject directory")
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(err, "subject directory")
	}
	if !fi.IsDir() {
		return nil, errors.Errorf("subject directory %s is not a directory", abs)
	}

	l := &Layout{
		subjectDir: abs,
		outputs:    make(map[string]Output),
	}
	if err := l.parseRunMetadata(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layout) parseRunMetadata() error {
	metadataDir := filepath.Join(l.subjectDir, MetadataDirName)

	f, err := os.Open(filepath.Join(metadataDir, "recon-all.env"))
	if err != nil {
		return errors.Wrapf(ErrMissingMetadata, "%v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "FS_RECON_VERSION") {
			continue
		}
		_, value, _ := strings.Cut(line, "=")
		if fields := strings.Fields(value); len(fields) > 0 {
			l.metadata.FreeSurferVersion = fields[0]
		}
		break
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "reading recon-all.env")
	}

	args, err := os.ReadFile(filepath.Join(metadataDir, "unknown-args.txt"))
	if err != nil {
		return errors.Wrapf(ErrMissingMetadata, "%v", err)
	}
	l.metadata.CommandLine = strings.ReplaceAll(string(args), "\n", " ")

	return nil
}

// SubjectDir is the absolute path of the subject directory.
func (l *Layout) SubjectDir() string { return l.subjectDir }

// SubjectID is the subject name FreeSurfer tools expect.
func (l *Layout) SubjectID() string { return filepath.Base(l.subjectDir) }

// SubjectsDir is the directory FreeSurfer calls SUBJECTS_DIR.
func (l *Layout) SubjectsDir() string { return filepath.Dir(l.subjectDir) }

// Metadata returns the parsed recon-all run metadata.
func (l *Layout) Metadata() Metadata { return l.metadata }

// Path joins elem onto the subject directory.
func (l *Layout) Path(elem ...string) string {
	return filepath.Join(append([]string{l.subjectDir}, elem...)...)
}

// CollectOutputs globs every pattern below the subject directory and records
// the result under its key. Keys without a match are recorded as absent.
func (l *Layout) CollectOutputs(patterns map[string]string) (map[string]Output, error) {
	for key, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(l.subjectDir, pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "output %s: bad pattern %q", key, pattern)
		}
		l.outputs[key] = classify(matches)
	}
	return l.Outputs(), nil
}

// classify splits glob matches into hemisphere-specific files, identified by
// their lh./rh. prefix, and a single file for everything else.
func classify(matches []string) Output {
	sort.Strings(matches)

	var out Output
	var other []string
	for _, m := range matches {
		prefix, _, ok := strings.Cut(filepath.Base(m), ".")
		if h := models.Hemisphere(prefix); ok && h.Valid() {
			if out.Hemis == nil {
				out.Hemis = make(map[models.Hemisphere]string)
			}
			if _, dup := out.Hemis[h]; !dup {
				out.Hemis[h] = m
			}
			continue
		}
		other = append(other, m)
	}
	if len(other) > 0 {
		out.Path = other[0]
	}
	return out
}

// Outputs returns a copy of all recorded outputs.
func (l *Layout) Outputs() map[string]Output {
	res := make(map[string]Output, len(l.outputs))
	for k, v := range l.outputs {
		res[k] = v
	}
	return res
}

// Get returns the output recorded under key.
func (l *Layout) Get(key string) (Output, bool) {
	o, ok := l.outputs[key]
	return o, ok && o.Present()
}

// Set records a single-file output.
func (l *Layout) Set(key, path string) {
	l.outputs[key] = Output{Path: path}
}

// SetHemi records the file of one hemisphere for key.
func (l *Layout) SetHemi(key string, h models.Hemisphere, path string) {
	o := l.outputs[key]
	hemis := make(map[models.Hemisphere]string, len(o.Hemis)+1)
	for k, v := range o.Hemis {
		hemis[k] = v
	}
	hemis[h] = path
	l.outputs[key] = Output{Hemis: hemis}
}

// Reset drops whatever was recorded under key.
func (l *Layout) Reset(key string) {
	delete(l.outputs, key)
}

// Keys returns the recorded keys in lexical order.
func (l *Layout) Keys() []string {
	keys := make([]string, 0, len(l.outputs))
	for k := range l.outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
