package workspace

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"procpipe/internal/process"
	"procpipe/internal/runlog"

	"github.com/google/uuid"
)

// ErrExists is returned by EnsureDirectory with the Fail policy when the path exists.
var ErrExists = errors.New("already exists")

// Policy decides what EnsureDirectory does with an existing path.
type Policy int

const (
	// Fail refuses to use a path that already exists.
	Fail Policy = iota
	// Force creates the directory and its parents if needed and accepts an existing one.
	Force
)

func (p Policy) String() string {
	if p == Force {
		return "force"
	}
	return "fail"
}

// EnsureDirectory creates the directory at path according to policy.
func EnsureDirectory(path string, policy Policy) error {
	if policy == Fail {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("directory %s %w; use force to reuse it", path, ErrExists)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat directory: %w", err)
		}
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Run is the record of one pipeline execution kept in its own directory.
type Run struct {
	ID          string
	Command     string // verbose display of the pipeline
	StartTime   time.Time
	EndTime     time.Time
	Completed   bool
	ExitCode    int
	Signal      string
	ContentType string // MIME type of the recorded stdout
	Path        string
}

// OutputFile returns the path of the run log holding the recorded streams.
func (r *Run) OutputFile() string {
	return filepath.Join(r.Path, "output.log")
}

// CreateRun creates a new run directory below runsDir.
func CreateRun(runsDir, command string) (*Run, error) {
	if err := EnsureDirectory(runsDir, Force); err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.NewString(),
		Command:   command,
		StartTime: time.Now().UTC(),
	}
	run.Path = filepath.Join(runsDir, run.ID)
	if err := EnsureDirectory(run.Path, Fail); err != nil {
		return nil, err
	}

	if err := writeField(run.Path, "cmd", run.Command); err != nil {
		return nil, err
	}
	if err := writeField(run.Path, "starttime", run.StartTime.Format(time.RFC3339Nano)); err != nil {
		return nil, err
	}
	if err := writeField(run.Path, "completed", "false"); err != nil {
		return nil, err
	}
	if err := os.WriteFile(run.OutputFile(), []byte{}, 0600); err != nil {
		return nil, fmt.Errorf("failed to create output.log file: %w", err)
	}
	return run, nil
}

// CompleteRun stores the exit status of a finished run.
func CompleteRun(run *Run, status process.ExitStatus) error {
	run.EndTime = time.Now().UTC()
	run.Completed = true
	run.ExitCode = status.Code
	run.Signal = status.Signal

	if err := writeField(run.Path, "exit-status", strconv.Itoa(run.ExitCode)); err != nil {
		return err
	}
	if run.Signal != "" {
		if err := writeField(run.Path, "signal", run.Signal); err != nil {
			return err
		}
	}
	if err := writeField(run.Path, "endtime", run.EndTime.Format(time.RFC3339Nano)); err != nil {
		return err
	}

	if stdout, err := readStdout(run.OutputFile()); err == nil && len(stdout) > 0 {
		run.ContentType = detectContentType(stdout)
		if err := writeField(run.Path, "content-type", run.ContentType); err != nil {
			return err
		}
	}

	return writeField(run.Path, "completed", "true")
}

// LoadRun reads a run record from its directory.
func LoadRun(dir string) (*Run, error) {
	run := &Run{
		ID:   filepath.Base(dir),
		Path: dir,
	}

	cmd, err := os.ReadFile(filepath.Join(dir, "cmd"))
	if err != nil {
		return nil, fmt.Errorf("failed to read cmd file: %w", err)
	}
	run.Command = string(cmd)

	startTime, err := readField(dir, "starttime")
	if err != nil {
		return nil, err
	}
	run.StartTime, err = time.Parse(time.RFC3339Nano, startTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse starttime: %w", err)
	}

	completed, err := readField(dir, "completed")
	if err != nil {
		return nil, err
	}
	run.Completed = completed == "true"

	// Optional fields
	if endTime, err := readField(dir, "endtime"); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, endTime); err == nil {
			run.EndTime = t
		}
	}
	if exitStatus, err := readField(dir, "exit-status"); err == nil {
		if code, err := strconv.Atoi(exitStatus); err == nil {
			run.ExitCode = code
		}
	}
	if signal, err := readField(dir, "signal"); err == nil {
		run.Signal = signal
	}
	if contentType, err := readField(dir, "content-type"); err == nil {
		run.ContentType = contentType
	}

	return run, nil
}

// ListRuns returns every readable run below runsDir, oldest first.
func ListRuns(runsDir string) ([]*Run, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Run{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var runs []*Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := LoadRun(filepath.Join(runsDir, entry.Name()))
		if err != nil {
			// Skip invalid runs
			continue
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})
	return runs, nil
}

func writeField(dir, name, value string) error {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write %s file: %w", name, err)
	}
	return nil
}

func readField(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to read %s file: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func readStdout(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	streams, err := runlog.Streams(f)
	if err != nil {
		return nil, err
	}
	return streams["stdout"], nil
}

// detectContentType detects the MIME type of stdout data
func detectContentType(data []byte) string {
	// http.DetectContentType uses at most the first 512 bytes
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}
