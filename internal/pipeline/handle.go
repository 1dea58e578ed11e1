package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"procpipe/internal/process"
)

// Handle controls the last stage of a piped pipeline. The stages before it are
// already running and feed its standard input.
//
// Set Cmd.Stdout and Cmd.Stderr before calling Start, Run or Output. A Handle is
// meant to be run once; call Close to give it up without running it.
type Handle struct {
	// Cmd is the last stage. Its Stdin is owned by the pipeline and must not be changed.
	Cmd *exec.Cmd

	stage    int
	program  string
	stdin    *os.File
	upstream []*runningStage
}

// runningStage is a started stage that is reaped in the background. Its exit
// status is discarded.
type runningStage struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func reap(cmd *exec.Cmd) *runningStage {
	rs := &runningStage{cmd: cmd, done: make(chan struct{})}
	go func() {
		defer close(rs.done)
		_ = cmd.Wait()
	}()
	return rs
}

// Start starts the last stage. If it cannot be started, the upstream stages are
// killed and the error wraps process.ErrSpawn.
func (h *Handle) Start() error {
	err := h.Cmd.Start()
	h.releaseStdin()
	if err != nil {
		h.terminate()
		return &StageError{
			Stage:   h.stage,
			Program: h.program,
			Err:     fmt.Errorf("%w: %w", process.ErrSpawn, err),
		}
	}
	slog.Debug("Started pipeline stage", "stage", h.stage, "program", h.program, "pid", h.Cmd.Process.Pid)
	return nil
}

// Wait waits for the last stage to exit and returns its exit status.
func (h *Handle) Wait() (process.ExitStatus, error) {
	return process.Wait(h.Cmd)
}

// Run starts the last stage and waits for it to exit.
func (h *Handle) Run() (process.ExitStatus, error) {
	if err := h.Start(); err != nil {
		return process.ExitStatus{}, err
	}
	return h.Wait()
}

// Output runs the last stage and returns its standard output.
func (h *Handle) Output() ([]byte, process.ExitStatus, error) {
	if h.Cmd.Stdout != nil {
		h.Close()
		return nil, process.ExitStatus{}, errors.New("pipeline: Stdout already set")
	}
	var stdout bytes.Buffer
	h.Cmd.Stdout = &stdout
	status, err := h.Run()
	return stdout.Bytes(), status, err
}

// Close releases a handle that will not be run and kills the upstream stages.
// It does nothing once the last stage has been started.
func (h *Handle) Close() {
	if h.Cmd.Process != nil {
		return
	}
	h.releaseStdin()
	h.terminate()
}

// PIDs returns the process IDs of the started stages in pipeline order.
func (h *Handle) PIDs() []int {
	pids := make([]int, 0, len(h.upstream)+1)
	for _, rs := range h.upstream {
		pids = append(pids, rs.cmd.Process.Pid)
	}
	if h.Cmd.Process != nil {
		pids = append(pids, h.Cmd.Process.Pid)
	}
	return pids
}

func (h *Handle) releaseStdin() {
	closeFile(h.stdin)
	h.stdin = nil
}

// terminate kills every upstream stage and waits until they are reaped.
func (h *Handle) terminate() {
	for i, rs := range h.upstream {
		if err := rs.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			slog.Warn("Failed to kill pipeline stage", "stage", i, "pid", rs.cmd.Process.Pid, "error", err)
		}
	}
	for _, rs := range h.upstream {
		<-rs.done
	}
	h.upstream = nil
}
