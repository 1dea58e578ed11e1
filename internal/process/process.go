package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidEncoding is returned when an argument is not valid UTF-8 text.
	ErrInvalidEncoding = errors.New("invalid argument encoding")

	// ErrEmptyProgram is returned when a process is created without a program name.
	ErrEmptyProgram = errors.New("empty program name")

	// ErrSpawn is returned when the operating system refuses to start a program.
	ErrSpawn = errors.New("failed to spawn process")
)

// Process describes a single program invocation: a program name and its arguments.
// A Process is never modified after construction, so it is safe to share and to
// execute more than once.
type Process struct {
	program string
	args    []string
}

// New creates a Process for program with the given arguments.
func New(program string, args ...string) (*Process, error) {
	if program == "" {
		return nil, ErrEmptyProgram
	}
	for i, arg := range args {
		if !utf8.ValidString(arg) {
			return nil, fmt.Errorf("%w: argument %d of %s", ErrInvalidEncoding, i, program)
		}
	}
	return &Process{
		program: program,
		args:    append([]string(nil), args...),
	}, nil
}

// FromBytes creates a Process from raw argument bytes, for example arguments read
// from a file or another process.
func FromBytes(program string, args [][]byte) (*Process, error) {
	strs := make([]string, len(args))
	for i, arg := range args {
		strs[i] = string(arg)
	}
	return New(program, strs...)
}

// MustNew is like New but panics if the process cannot be created. It simplifies
// building processes from literals.
func MustNew(program string, args ...string) *Process {
	p, err := New(program, args...)
	if err != nil {
		panic(err)
	}
	return p
}

// Program returns the program name.
func (p *Process) Program() string {
	return p.program
}

// Args returns a copy of the arguments.
func (p *Process) Args() []string {
	return append([]string(nil), p.args...)
}

// Command creates an *exec.Cmd for the process. The command is not started, and
// its standard streams are left unset so the caller can redirect them.
func (p *Process) Command() *exec.Cmd {
	return exec.Command(p.program, p.args...)
}

// Execute runs the process to completion with the standard streams of the calling
// process and returns its exit status. A non-zero exit is reported through the
// status, not as an error.
func (p *Process) Execute() (ExitStatus, error) {
	return p.ExecuteWith(os.Stdin, os.Stdout, os.Stderr)
}

// ExecuteWith is like Execute but connects the process to the given streams.
func (p *Process) ExecuteWith(stdin io.Reader, stdout, stderr io.Writer) (ExitStatus, error) {
	cmd := p.Command()
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return ExitStatus{}, fmt.Errorf("%w %s: %w", ErrSpawn, p.program, err)
	}
	return Wait(cmd)
}

// Display formats the process as "program arg1 arg2 ...". With a Brief verbosity
// only the first arguments are shown, followed by " ..." if any were left out.
func (p *Process) Display(verbosity Verbosity) string {
	shown := len(p.args)
	if !verbosity.IsVerbose() && verbosity.MaxArgs() < shown {
		shown = verbosity.MaxArgs()
	}

	var sb strings.Builder
	sb.WriteString(p.program)
	for _, arg := range p.args[:shown] {
		sb.WriteByte(' ')
		sb.WriteString(arg)
	}
	if shown < len(p.args) {
		sb.WriteString(" ...")
	}
	return sb.String()
}

// String implements fmt.Stringer using the verbose display.
func (p *Process) String() string {
	return p.Display(Verbose)
}
