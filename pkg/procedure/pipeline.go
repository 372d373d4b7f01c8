package procedure

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
	"surfparcel/pkg/layout"
)

// Manifest records what a pipeline run produced for one subject.
type Manifest struct {
	RunID             string            `yaml:"runId"`
	Subject           string            `yaml:"subject"`
	Atlas             string            `yaml:"atlas"`
	StartedAt         time.Time         `yaml:"startedAt"`
	FinishedAt        time.Time         `yaml:"finishedAt"`
	FreeSurferVersion string            `yaml:"freesurferVersion"`
	ReconAll          string            `yaml:"reconAll"`
	Seed              int               `yaml:"seed"`
	Force             bool              `yaml:"force"`
	Procedures        []string          `yaml:"procedures"`
	Outputs           map[string]string `yaml:"outputs"`

	// Checksums are the xxhash64 digests of Outputs, by the same keys.
	Checksums map[string]string `yaml:"checksums,omitempty"`
}

// ManifestPath is scripts/surfparcel.<atlas>.yaml inside the subject.
func ManifestPath(l *layout.Layout, atlas string) string {
	return l.Path(layout.MetadataDirName, "surfparcel."+atlas+".yaml")
}

// Pipeline runs the selected registrations for a single subject.
type Pipeline struct {
	// Params are shared by all procedures.
	Params Params

	// Atlas is mapped onto the subject.
	Atlas *models.Atlas

	// Cortical and Subcortical select the registrations to run.
	Cortical    bool
	Subcortical bool

	// Outputs are the layout patterns to collect. Nil means layout.DefaultOutputs.
	Outputs map[string]string
}

// Process parses the subject directory, runs the selected registrations
// and writes the manifest next to the recon-all metadata.
func (p *Pipeline) Process(ctx context.Context, subjectDir string, force bool) (*Manifest, error) {
	if !p.Cortical && !p.Subcortical {
		return nil, errors.New("nothing to do: neither cortical nor subcortical registration selected")
	}

	l, err := layout.New(subjectDir)
	if err != nil {
		return nil, err
	}
	patterns := p.Outputs
	if patterns == nil {
		patterns = layout.DefaultOutputs()
	}
	if _, err := l.CollectOutputs(patterns); err != nil {
		return nil, err
	}

	log := p.Params.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("subject", l.SubjectID())

	m := &Manifest{
		RunID:             uuid.NewString(),
		Subject:           l.SubjectID(),
		Atlas:             p.Atlas.Name,
		StartedAt:         time.Now().UTC(),
		FreeSurferVersion: l.Metadata().FreeSurferVersion,
		ReconAll:          l.Metadata().CommandLine,
		Seed:              p.Params.Seed,
		Force:             force,
	}

	// construct both first so a missing input fails before anything runs
	var procs []Procedure
	if p.Cortical {
		c, err := NewCortical(l, p.Atlas, p.Params)
		if err != nil {
			return nil, errors.Wrapf(err, "subject %s", l.SubjectID())
		}
		procs = append(procs, c)
	}
	if p.Subcortical {
		s, err := NewSubcortical(l, p.Atlas, p.Params)
		if err != nil {
			return nil, errors.Wrapf(err, "subject %s", l.SubjectID())
		}
		procs = append(procs, s)
	}

	for _, proc := range procs {
		log.WithField("procedure", proc.Name()).Info("starting registration")
		start := time.Now()
		if err := proc.Run(ctx, force); err != nil {
			return nil, errors.Wrapf(err, "subject %s: %s registration", l.SubjectID(), proc.Name())
		}
		log.WithFields(logrus.Fields{
			"procedure": proc.Name(),
			"elapsed":   time.Since(start).Round(time.Millisecond),
		}).Info("registration finished")
		m.Procedures = append(m.Procedures, proc.Name())
	}

	m.Outputs = derivedOutputs(l)
	m.FinishedAt = time.Now().UTC()

	if p.Params.DryRun {
		return m, nil
	}
	if m.Checksums, err = checksums(m.Outputs); err != nil {
		return nil, errors.Wrapf(err, "subject %s", l.SubjectID())
	}
	if err := WriteManifest(ManifestPath(l, p.Atlas.Name), m); err != nil {
		return nil, err
	}
	return m, nil
}

var derivedKeys = []string{
	layout.CorticalAnnotation,
	layout.CorticalStats,
	layout.CorticalRegionalCSV,
	layout.CorticalGlobalCSV,
	layout.SubcortexSegmentation,
	layout.SubcortexStats,
	layout.SubcortexRegionalCSV,
}

// derivedOutputs flattens the files recorded by the procedures, keyed as
// "<key>" or "<key>.<hemi>".
func derivedOutputs(l *layout.Layout) map[string]string {
	res := make(map[string]string)
	for _, key := range derivedKeys {
		o, ok := l.Get(key)
		if !ok {
			continue
		}
		if o.Path != "" {
			res[key] = o.Path
		}
		for h, path := range o.Hemis {
			res[key+"."+string(h)] = path
		}
	}
	return res
}

func checksums(outputs map[string]string) (map[string]string, error) {
	res := make(map[string]string, len(outputs))
	for key, path := range outputs {
		sum, err := Checksum(path)
		if err != nil {
			return nil, err
		}
		res[key] = sum
	}
	return res, nil
}

// Checksum returns the xxhash64 digest of the file at path as 16 hex digits.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "checksum")
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "checksum of %s", path)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// WriteManifest stores m as YAML at path.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "manifest")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "manifest")
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "manifest")
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return m, nil
}

// Result is the outcome of one subject in a batch.
type Result struct {
	SubjectDir string
	Manifest   *Manifest
}

// RunBatch processes subjectDirs with at most jobs subjects at a time. The
// steps of a subject always run in order. The first failure cancels the
// subjects that have not started yet and is returned together with the
// results of the subjects that finished.
func (p *Pipeline) RunBatch(ctx context.Context, subjectDirs []string, jobs int, force bool) ([]Result, error) {
	if jobs < 1 {
		jobs = 1
	}

	results := make([]Result, len(subjectDirs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, dir := range subjectDirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := p.Process(ctx, dir, force)
			if err != nil {
				return err
			}
			results[i] = Result{SubjectDir: dir, Manifest: m}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var done []Result
		for _, res := range results {
			if res.Manifest != nil {
				done = append(done, res)
			}
		}
		return done, err
	}
	return results, nil
}

// Keys returns the manifest outputs in lexical order.
func (m *Manifest) Keys() []string {
	keys := make([]string, 0, len(m.Outputs))
	for k := range m.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
