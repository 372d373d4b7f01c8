// Package freesurfer builds and runs command lines for the FreeSurfer tools
// used by the parcellation procedures. The builders only describe the
// command-line contract of each binary; the work itself happens in the
// external process.
package freesurfer

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"surfparcel/internal/errors"
)

var (
	// ErrMissingInput is returned when a mandatory input is unset or a file
	// that must exist is missing.
	ErrMissingInput = errors.New("missing input")

	// ErrInvalidInput is returned for inputs outside their allowed values.
	ErrInvalidInput = errors.New("invalid input")
)

// Options are understood by every FreeSurfer command.
type Options struct {
	// SubjectsDir is exported as SUBJECTS_DIR. Empty means inherit it.
	SubjectsDir string

	// NumThreads is exported as OMP_NUM_THREADS when positive.
	NumThreads int
}

func (o Options) env() []string {
	var env []string
	if o.SubjectsDir != "" {
		env = append(env, "SUBJECTS_DIR="+o.SubjectsDir)
	}
	if o.NumThreads > 0 {
		env = append(env, "OMP_NUM_THREADS="+strconv.Itoa(o.NumThreads))
	}
	return env
}

func (o Options) subjectsDir() string {
	if o.SubjectsDir != "" {
		return o.SubjectsDir
	}
	return os.Getenv("SUBJECTS_DIR")
}

// Command is a fully built invocation of a FreeSurfer binary.
type Command struct {
	// Program is the binary name, resolved by the Runner.
	Program string

	// Args excludes the program name.
	Args []string

	// Env holds KEY=VALUE pairs added to the inherited environment.
	Env []string
}

// String returns the command line the way a shell user would type it.
func (c *Command) String() string {
	return strings.Join(append([]string{c.Program}, c.Args...), " ")
}

// Interface is implemented by all command builders.
type Interface interface {
	Program() string
	Args() []string
	Validate() error
	Command() (*Command, error)
	Run(ctx context.Context, r Runner) error
	OutFile() string
}

func requireValue(name, value string) error {
	if value == "" {
		return errors.Wrapf(ErrMissingInput, "%s is mandatory", name)
	}
	return nil
}

// requireFile checks that path exists; an empty optional path is accepted.
func requireFile(name, path string, mandatory bool) error {
	if path == "" {
		if mandatory {
			return requireValue(name, path)
		}
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(ErrMissingInput, "%s: file %s does not exist", name, path)
	}
	return nil
}

func mkdirFor(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return nil
}

func outDir(path string) string {
	if filepath.Base(path) == path {
		return ""
	}
	return filepath.Dir(path)
}
