package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"procpipe/internal/pipeline"
	"procpipe/internal/process"
	"procpipe/internal/runlog"
	"procpipe/internal/sysmon"
	"procpipe/internal/terminal"
	"procpipe/internal/workspace"
)

type runOptions struct {
	record  bool
	runsDir string
	tty     bool
	trace   bool
}

// runPipeline runs p, writing the output of its last stage to the standard
// output and error of procpipe and, if requested, to a recorded run.
func runPipeline(p *pipeline.Pipeline, opts runOptions) (process.ExitStatus, error) {
	if !opts.record {
		return execute(p, os.Stdout, os.Stderr, opts)
	}

	run, err := workspace.CreateRun(opts.runsDir, p.Display(process.Verbose))
	if err != nil {
		return process.ExitStatus{}, err
	}
	slog.Info("Recording run", "id", run.ID, "path", run.Path)

	f, err := os.OpenFile(run.OutputFile(), os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return process.ExitStatus{}, fmt.Errorf("failed to open output.log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	logWriter := runlog.NewWriter(f)
	stdoutLog, err := logWriter.Stream("stdout")
	if err != nil {
		logWriter.Close()
		return process.ExitStatus{}, err
	}
	stderrLog, err := logWriter.Stream("stderr")
	if err != nil {
		logWriter.Close()
		return process.ExitStatus{}, err
	}

	status, err := execute(p, io.MultiWriter(os.Stdout, stdoutLog), io.MultiWriter(os.Stderr, stderrLog), opts)
	logWriter.Close()
	if err != nil {
		return status, err
	}

	if err := workspace.CompleteRun(run, status); err != nil {
		return status, fmt.Errorf("failed to complete run: %w", err)
	}
	return status, nil
}

func execute(p *pipeline.Pipeline, stdout, stderr io.Writer, opts runOptions) (process.ExitStatus, error) {
	if p.Len() == 1 {
		if opts.tty {
			return process.ExitStatus{}, errors.New("--tty needs at least two stages")
		}
		return p.Stages()[0].ExecuteWith(os.Stdin, stdout, stderr)
	}

	h, err := p.Pipe()
	if err != nil {
		return process.ExitStatus{}, err
	}

	if opts.tty {
		// The terminal merges stdout and stderr of the last stage
		session, err := terminal.NewSession(h, terminal.Size(os.Stdout))
		if err != nil {
			h.Close()
			return process.ExitStatus{}, err
		}
		if opts.trace {
			traceStages(h)
		}
		return session.Run(stdout)
	}

	h.Cmd.Stdout = stdout
	h.Cmd.Stderr = stderr
	if err := h.Start(); err != nil {
		return process.ExitStatus{}, err
	}
	if opts.trace {
		traceStages(h)
	}
	return h.Wait()
}

func traceStages(h *pipeline.Handle) {
	for _, s := range sysmon.Inspect(h.PIDs()) {
		slog.Info("Pipeline stage",
			"stage", s.Stage,
			"pid", s.PID,
			"name", s.Name,
			"status", s.Status,
			"threads", s.NumThreads,
			"rss_mb", fmt.Sprintf("%.1f", s.MemoryMB),
		)
	}
}
