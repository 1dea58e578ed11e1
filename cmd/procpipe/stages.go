package main

import (
	"fmt"

	"procpipe/internal/config"
	"procpipe/internal/pipeline"
	"procpipe/internal/process"
)

// stageSeparator separates stages on the command line. It has to be quoted so
// the calling shell does not interpret it.
const stageSeparator = "|"

// splitStages turns "prog1 a b | prog2 c" style arguments into processes.
func splitStages(args []string) ([]*process.Process, error) {
	var stages []*process.Process
	var current []string

	flush := func() error {
		if len(current) == 0 {
			return fmt.Errorf("empty stage %d", len(stages))
		}
		p, err := process.New(current[0], current[1:]...)
		if err != nil {
			return fmt.Errorf("stage %d: %w", len(stages), err)
		}
		stages = append(stages, p)
		current = nil
		return nil
	}

	for _, arg := range args {
		if arg == stageSeparator {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		current = append(current, arg)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return stages, nil
}

// loadPipeline builds the pipeline from --file or from the positional arguments.
func loadPipeline(file string, args []string) (*pipeline.Pipeline, error) {
	if file != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("use either --file or stage arguments, not both")
		}
		return config.LoadPipeline(file)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no stages given")
	}
	stages, err := splitStages(args)
	if err != nil {
		return nil, err
	}
	return pipeline.New(stages), nil
}
