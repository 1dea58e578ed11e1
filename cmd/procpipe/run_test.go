package main

import (
	"os"
	"path/filepath"
	"testing"

	"procpipe/internal/pipeline"
	"procpipe/internal/process"
	"procpipe/internal/runlog"
	"procpipe/internal/workspace"

	"github.com/stretchr/testify/require"
)

func TestRunPipelineRecord(t *testing.T) {
	runsDir := filepath.Join(t.TempDir(), "runs")
	p := pipeline.Of(
		process.MustNew("echo", "-e", `a\nb\nc`),
		process.MustNew("sh", "-c", "grep b; echo warn >&2; exit 2"),
	)

	status, err := runPipeline(p, runOptions{record: true, runsDir: runsDir, trace: true})
	require.NoError(t, err)
	require.Equal(t, 2, status.Code)

	runs, err := workspace.ListRuns(runsDir)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	require.True(t, run.Completed)
	require.Equal(t, 2, run.ExitCode)
	require.Equal(t, p.Display(process.Verbose), run.Command)

	f, err := os.Open(run.OutputFile())
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	streams, err := runlog.Streams(f)
	require.NoError(t, err)
	require.Equal(t, "b\n", string(streams["stdout"]))
	require.Equal(t, "warn\n", string(streams["stderr"]))
}

func TestRunPipelineSingleStage(t *testing.T) {
	runsDir := t.TempDir()
	status, err := runPipeline(pipeline.Of(process.MustNew("sh", "-c", "exit 5")), runOptions{record: true, runsDir: runsDir})
	require.NoError(t, err)
	require.Equal(t, 5, status.Code)

	_, err = runPipeline(pipeline.Of(process.MustNew("true")), runOptions{tty: true})
	require.Error(t, err)
}

func TestRunPipelineSpawnFailure(t *testing.T) {
	runsDir := t.TempDir()
	_, err := runPipeline(pipeline.Of(process.MustNew("echo"), process.MustNew("unknown_process_procpipe")), runOptions{record: true, runsDir: runsDir})
	require.ErrorIs(t, err, process.ErrSpawn)

	runs, err := workspace.ListRuns(runsDir)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.False(t, runs[0].Completed)
}

func TestRunPipelineTTY(t *testing.T) {
	status, err := runPipeline(pipeline.Of(process.MustNew("echo", "hi"), process.MustNew("cat")), runOptions{tty: true, trace: true})
	require.NoError(t, err)
	require.True(t, status.Success())
}
