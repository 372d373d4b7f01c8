package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"surfparcel/internal/errors"
	"surfparcel/pkg/config"
	"surfparcel/pkg/freesurfer"
)

// GlobalOptions hold the flags shared by all commands and the state derived
// from them before a command runs.
type GlobalOptions struct {
	ConfigFile     string
	Verbose        bool
	FreeSurferHome string
	Threads        int
	DryRun         bool
	Plain          bool

	cfg    *config.Config
	log    *logrus.Logger
	stdout io.Writer
	stderr io.Writer
}

func newGlobalOptions() *GlobalOptions {
	return &GlobalOptions{
		ConfigFile: os.Getenv("SURFPARCEL_CONFIG"),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVarP(&opts.ConfigFile, "config", "c", opts.ConfigFile, "YAML configuration `file` (default: $SURFPARCEL_CONFIG)")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "log every command line and the output of FreeSurfer tools")
	f.StringVar(&opts.FreeSurferHome, "freesurfer-home", "", "FreeSurfer installation `directory` (default: $FREESURFER_HOME)")
	f.IntVar(&opts.Threads, "threads", 0, "OpenMP `threads` per FreeSurfer command (default: from config)")
	f.BoolVarP(&opts.DryRun, "dry-run", "n", false, "print the FreeSurfer command lines instead of running them")
	f.BoolVar(&opts.Plain, "plain", false, "print reports without borders and colors")
}

// PreRun loads the configuration, applies flag overrides and sets up logging.
func (opts *GlobalOptions) PreRun(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return errors.Fatalf("%v", err)
	}

	flags := cmd.Flags()
	if flags.Changed("freesurfer-home") {
		cfg.FreeSurfer.Home = opts.FreeSurferHome
	}
	if flags.Changed("threads") {
		if opts.Threads < 0 {
			return errors.Fatal("--threads must not be negative")
		}
		cfg.FreeSurfer.NumThreads = opts.Threads
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return errors.Fatalf("invalid log level %q", cfg.Log.Level)
	}
	if opts.Verbose {
		level = logrus.DebugLevel
	}

	log := logrus.New()
	log.SetOutput(opts.stderr)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if f, ok := opts.stdout.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		opts.Plain = true
	}

	opts.cfg = cfg
	opts.log = log
	return nil
}

func (opts *GlobalOptions) runner() freesurfer.Runner {
	if opts.DryRun {
		return &freesurfer.DryRunner{Out: opts.stdout}
	}
	return freesurfer.NewExecRunner(opts.cfg.FreeSurfer.Home, logrus.NewEntry(opts.log))
}
