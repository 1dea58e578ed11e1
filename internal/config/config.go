// Package config holds the settings of the procpipe command and loads
// pipelines declared in YAML files.
package config

import (
	"fmt"
	"os"

	"procpipe/internal/pipeline"
	"procpipe/internal/process"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from PROCPIPE_* environment variables. Command line flags
// override it.
type Config struct {
	Verbose bool   `envconfig:"VERBOSE" default:"false"`
	MaxArgs int    `envconfig:"MAX_ARGS" default:"5"`
	RunsDir string `envconfig:"RUNS_DIR" default:".procpipe/runs"`
	Debug   bool   `envconfig:"DEBUG" default:"false"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("procpipe", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if cfg.MaxArgs < 0 {
		return nil, fmt.Errorf("PROCPIPE_MAX_ARGS must not be negative, got %d", cfg.MaxArgs)
	}
	return &cfg, nil
}

// Verbosity returns the display verbosity the configuration asks for.
func (c *Config) Verbosity() process.Verbosity {
	return process.VerboseIf(c.Verbose, c.MaxArgs)
}

// File is the YAML form of a pipeline:
//
//	stages:
//	  - program: echo
//	    args: ["-e", "a\nb\nc"]
//	  - program: grep
//	    args: [b]
type File struct {
	Stages []Stage `yaml:"stages"`
}

// Stage is one process of a File.
type Stage struct {
	Program string   `yaml:"program"`
	Args    []string `yaml:"args,omitempty"`
}

// ParsePipeline decodes a YAML pipeline definition.
func ParsePipeline(data []byte) (*pipeline.Pipeline, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}
	if len(file.Stages) == 0 {
		return nil, fmt.Errorf("pipeline has no stages")
	}

	stages := make([]*process.Process, len(file.Stages))
	for i, s := range file.Stages {
		p, err := process.New(s.Program, s.Args...)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		stages[i] = p
	}
	return pipeline.New(stages), nil
}

// LoadPipeline reads a YAML pipeline definition from path.
func LoadPipeline(path string) (*pipeline.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return ParsePipeline(data)
}
