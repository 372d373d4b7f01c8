// Package config provides configuration loading and management for surfparcel.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"surfparcel/internal/errors"
	"surfparcel/internal/models"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// FreeSurfer installation parameters
	FreeSurfer struct {
		// Home is the FreeSurfer installation; binaries are looked up in Home/bin.
		// When empty, $FREESURFER_HOME and then PATH are used.
		Home string `yaml:"home"`

		// NumThreads is exported as OMP_NUM_THREADS to every command (0 leaves it unset)
		NumThreads int `yaml:"numThreads"`
	} `yaml:"freesurfer"`

	// Processing parameters
	Processing struct {
		// Seed is passed to mris_ca_label so labelings are reproducible
		Seed int `yaml:"seed"`

		// Force recomputes outputs that already exist
		Force bool `yaml:"force"`

		// Jobs is how many subjects are processed at the same time
		Jobs int `yaml:"jobs"`

		// Cortical enables the surface parcellation
		Cortical bool `yaml:"cortical"`

		// Subcortical enables the volumetric parcellation
		Subcortical bool `yaml:"subcortical"`

		// ExcludeIDs are segmentation ids left out of the subcortical statistics
		ExcludeIDs []int `yaml:"excludeIds"`
	} `yaml:"processing"`

	// Atlases available by name
	Atlases []models.Atlas `yaml:"atlases"`

	// Layout parameters
	Layout struct {
		// Outputs adds or overrides recon-all output patterns (key -> glob)
		Outputs map[string]string `yaml:"outputs"`
	} `yaml:"layout"`

	// Log parameters
	Log struct {
		// Level is any logrus level name
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.FreeSurfer.Home = os.Getenv("FREESURFER_HOME")
	cfg.FreeSurfer.NumThreads = 1

	cfg.Processing.Seed = 42
	cfg.Processing.Force = false
	cfg.Processing.Jobs = runtime.NumCPU()
	cfg.Processing.Cortical = true
	cfg.Processing.Subcortical = true
	cfg.Processing.ExcludeIDs = []int{0}

	cfg.Log.Level = "info"

	return cfg
}

// Atlas returns the atlas with the given name
func (c *Config) Atlas(name string) (*models.Atlas, error) {
	for i := range c.Atlases {
		if c.Atlases[i].Name == name {
			atlas := c.Atlases[i]
			return &atlas, nil
		}
	}
	return nil, errors.Errorf("atlas %q is not configured", name)
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail much later
func (c *Config) Validate() error {
	if c.Processing.Jobs < 0 {
		return errors.Errorf("processing.jobs must not be negative, got %d", c.Processing.Jobs)
	}
	if c.FreeSurfer.NumThreads < 0 {
		return errors.Errorf("freesurfer.numThreads must not be negative, got %d", c.FreeSurfer.NumThreads)
	}
	seen := make(map[string]bool)
	for _, atlas := range c.Atlases {
		if atlas.Name == "" {
			return errors.New("every atlas needs a name")
		}
		if seen[atlas.Name] {
			return errors.Errorf("atlas %q is defined twice", atlas.Name)
		}
		seen[atlas.Name] = true
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
