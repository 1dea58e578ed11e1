// Package pipeline connects processes the way a shell pipe does: the standard
// output of each stage feeds the standard input of the next one.
//
// The package only establishes the connections. Bytes travel through anonymous
// operating system pipes, so there is no buffering or copying in this process and
// backpressure is whatever the pipe capacity gives.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"procpipe/internal/process"
)

// ErrPipeAllocation is returned when the operating system cannot create a pipe.
var ErrPipeAllocation = errors.New("failed to allocate pipe")

// StageSeparator is placed between stages by Display.
const StageSeparator = "\n\t| "

// StageError reports a failure that belongs to one stage of a pipeline.
type StageError struct {
	Stage   int // zero-based stage index
	Program string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Stage, e.Program, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline is an ordered chain of processes.
type Pipeline struct {
	stages []*process.Process
}

// New creates a pipeline from stages. The number of stages is not checked here;
// Pipe requires at least two.
func New(stages []*process.Process) *Pipeline {
	return &Pipeline{stages: append([]*process.Process(nil), stages...)}
}

// Of creates a pipeline from the given stages.
func Of(stages ...*process.Process) *Pipeline {
	return New(stages)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Stages returns the stages in pipeline order.
func (p *Pipeline) Stages() []*process.Process {
	return append([]*process.Process(nil), p.stages...)
}

// Display formats every stage with the same verbosity, one stage per line.
func (p *Pipeline) Display(verbosity process.Verbosity) string {
	parts := make([]string, len(p.stages))
	for i, stage := range p.stages {
		parts[i] = stage.Display(verbosity)
	}
	return strings.Join(parts, StageSeparator)
}

func (p *Pipeline) String() string {
	return p.Display(process.Verbose)
}

// Pipe wires the stages together and starts all of them except the last one.
// The returned Handle controls the last stage; running it drives the whole chain.
//
// The first stage reads the standard input of the calling process and every
// stage except the last writes its standard error there too. The last stage's
// standard output and error are left for the caller to set on Handle.Cmd.
//
// Pipe panics if the pipeline has fewer than two stages. A single process has
// nothing to pipe into and should be executed directly.
//
// If a pipe cannot be created or a stage fails to start, the stages that were
// already started are killed before the error is returned.
func (p *Pipeline) Pipe() (*Handle, error) {
	if len(p.stages) < 2 {
		panic(fmt.Sprintf("pipeline: Pipe needs at least two stages, got %d", len(p.stages)))
	}

	cmds := make([]*exec.Cmd, len(p.stages))
	for i, stage := range p.stages {
		cmds[i] = stage.Command()
	}
	cmds[0].Stdin = os.Stdin

	last := len(cmds) - 1
	h := &Handle{
		Cmd:     cmds[last],
		stage:   last,
		program: p.stages[last].Program(),
	}

	// upstream is the read end feeding cmds[i]; the parent holds a copy until
	// cmds[i] has been started.
	var upstream *os.File
	for i := 0; i < last; i++ {
		reader, writer, err := os.Pipe()
		if err != nil {
			closeFile(upstream)
			h.terminate()
			return nil, &StageError{
				Stage:   i,
				Program: p.stages[i].Program(),
				Err:     fmt.Errorf("%w: %w", ErrPipeAllocation, err),
			}
		}

		cmds[i].Stdout = writer
		cmds[i].Stderr = os.Stderr
		cmds[i+1].Stdin = reader

		err = cmds[i].Start()
		closeFile(writer)
		closeFile(upstream)
		upstream = reader
		if err != nil {
			closeFile(reader)
			h.terminate()
			return nil, &StageError{
				Stage:   i,
				Program: p.stages[i].Program(),
				Err:     fmt.Errorf("%w: %w", process.ErrSpawn, err),
			}
		}

		slog.Debug("Started pipeline stage", "stage", i, "program", p.stages[i].Program(), "pid", cmds[i].Process.Pid)
		h.upstream = append(h.upstream, reap(cmds[i]))
	}
	h.stdin = upstream

	return h, nil
}

// Execute runs the whole pipeline with the last stage writing to the standard
// output and error of the calling process. Only the exit status of the last
// stage is reported.
func (p *Pipeline) Execute() (process.ExitStatus, error) {
	h, err := p.Pipe()
	if err != nil {
		return process.ExitStatus{}, err
	}
	h.Cmd.Stdout = os.Stdout
	h.Cmd.Stderr = os.Stderr
	return h.Run()
}

func closeFile(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
