package freesurfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"surfparcel/internal/errors"
)

// Runner executes a built Command.
type Runner interface {
	Run(ctx context.Context, cmd *Command) error
}

// ExitError carries the exit code of a FreeSurfer binary that failed. The
// code is passed through, never interpreted.
type ExitError struct {
	Program string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Program, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Home is the FreeSurfer installation. Binaries in Home/bin take
	// precedence over PATH and FREESURFER_HOME is exported.
	Home string

	// Log receives the command line and the output of the process.
	Log *logrus.Entry
}

// NewExecRunner returns an ExecRunner logging to log.
func NewExecRunner(home string, log *logrus.Entry) *ExecRunner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ExecRunner{Home: home, Log: log}
}

// LookPath resolves the binary for program.
func (r *ExecRunner) LookPath(program string) (string, error) {
	if r.Home != "" {
		p := filepath.Join(r.Home, "bin", program)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	p, err := exec.LookPath(program)
	if err != nil {
		return "", errors.Wrapf(err, "cannot find %s, is FreeSurfer installed", program)
	}
	return p, nil
}

// Run starts the command and waits for it. Output is streamed to the log at
// debug level.
func (r *ExecRunner) Run(ctx context.Context, c *Command) error {
	bin, err := r.LookPath(c.Program)
	if err != nil {
		return err
	}

	log := r.Log.WithField("program", c.Program)
	log.Infof("running %s", c.String())

	cmd := exec.CommandContext(ctx, bin, c.Args...)
	cmd.Env = os.Environ()
	if r.Home != "" {
		cmd.Env = append(cmd.Env, "FREESURFER_HOME="+r.Home)
	}
	cmd.Env = append(cmd.Env, c.Env...)

	stdout := log.WriterLevel(logrus.DebugLevel)
	defer stdout.Close()
	stderr := log.WriterLevel(logrus.DebugLevel)
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err = cmd.Run()
	log = log.WithField("elapsed", time.Since(start).Round(time.Millisecond))

	if err != nil && ctx.Err() != nil {
		log.Warn("command interrupted")
		return errors.Wrapf(ctx.Err(), "running %s", c.Program)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.WithField("status", exitErr.ExitCode()).Error("command failed")
		return &ExitError{Program: c.Program, Code: exitErr.ExitCode(), Err: err}
	}
	if err != nil {
		return errors.Wrapf(err, "running %s", c.Program)
	}

	log.Debug("command finished")
	return nil
}

// DryRunner prints command lines instead of executing them.
type DryRunner struct {
	Out io.Writer
}

func (r *DryRunner) Run(_ context.Context, c *Command) error {
	_, err := fmt.Fprintln(r.Out, c.String())
	return err
}

// RecordingRunner remembers every command it is asked to run. Hook, when
// set, is called for each command and its error returned; tests use it to
// create the files a real tool would write.
type RecordingRunner struct {
	Hook func(*Command) error

	mu       sync.Mutex
	commands []*Command
}

func (r *RecordingRunner) Run(_ context.Context, c *Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()

	if r.Hook != nil {
		return r.Hook(c)
	}
	return nil
}

// Commands returns the recorded commands in call order.
func (r *RecordingRunner) Commands() []*Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Command(nil), r.commands...)
}

// Programs returns the program names of the recorded commands.
func (r *RecordingRunner) Programs() []string {
	var res []string
	for _, c := range r.Commands() {
		res = append(res, c.Program)
	}
	return res
}
