// Package terminal runs the last stage of a pipeline on a pseudo-terminal, so
// programs that check isatty (colors, progress bars, line buffering) behave as
// they do in an interactive shell.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"procpipe/internal/pipeline"
	"procpipe/internal/process"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// DefaultSize is used when the size of the controlling terminal is unknown.
var DefaultSize = pty.Winsize{Rows: 24, Cols: 80}

// Session connects the last stage of a pipeline to a pseudo-terminal.
type Session struct {
	handle *pipeline.Handle
	ptmx   *os.File
	tty    *os.File
}

// NewSession opens a pseudo-terminal of the given size and binds it to the
// standard output and error of the handle's last stage.
func NewSession(h *pipeline.Handle, size pty.Winsize) (*Session, error) {
	if h.Cmd.Stdout != nil || h.Cmd.Stderr != nil {
		return nil, errors.New("terminal: last stage output already set")
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open pty: %w", err)
	}
	if err := pty.Setsize(ptmx, &size); err != nil {
		slog.Warn("Failed to set pty size", "error", err)
	}

	h.Cmd.Stdout = tty
	h.Cmd.Stderr = tty
	return &Session{handle: h, ptmx: ptmx, tty: tty}, nil
}

// Run starts the last stage, copies everything it writes to the terminal into
// out and returns its exit status once it has exited and the output is drained.
func (s *Session) Run(out io.Writer) (process.ExitStatus, error) {
	defer func() { _ = s.ptmx.Close() }()

	err := s.handle.Start()
	// The child holds its own copy; the output ends once every copy is closed
	_ = s.tty.Close()
	if err != nil {
		return process.ExitStatus{}, err
	}

	copyDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(out, s.ptmx)
		copyDone <- err
	}()

	status, err := s.handle.Wait()
	copyErr := <-copyDone
	if err != nil {
		return status, err
	}
	// Linux reports EIO on the master once the terminal has no writers left
	if copyErr != nil && !errors.Is(copyErr, syscall.EIO) {
		return status, fmt.Errorf("failed to copy terminal output: %w", copyErr)
	}
	return status, nil
}

// Size returns the size of the terminal f refers to, or DefaultSize if f is not
// a terminal.
func Size(f *os.File) pty.Winsize {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return DefaultSize
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil || cols <= 0 || rows <= 0 {
		return DefaultSize
	}
	return pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
}
