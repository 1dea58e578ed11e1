package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// ExitStatus is the outcome of a finished process.
type ExitStatus struct {
	Code   int    // exit code, -1 if the process was terminated by a signal
	Signal string // signal name if terminated by signal
}

// Success reports whether the process exited with code 0.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == ""
}

func (s ExitStatus) String() string {
	if s.Signal != "" {
		return "signal: " + s.Signal
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// StatusOf converts the state of an exited process into an ExitStatus.
func StatusOf(state *os.ProcessState) ExitStatus {
	status := ExitStatus{Code: state.ExitCode()}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = ws.Signal().String()
	}
	return status
}

// Wait waits for a started command and returns its exit status. Exiting with a
// non-zero code is not an error; errors are reserved for failures to wait or to
// copy the command's output.
func Wait(cmd *exec.Cmd) (ExitStatus, error) {
	err := cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return ExitStatus{}, err
		}
	}
	return StatusOf(cmd.ProcessState), nil
}
