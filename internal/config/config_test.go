package config

import (
	"os"
	"path/filepath"
	"testing"

	"procpipe/internal/process"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROCPIPE_VERBOSE", "")
	t.Setenv("PROCPIPE_MAX_ARGS", "")
	t.Setenv("PROCPIPE_RUNS_DIR", "")
	os.Unsetenv("PROCPIPE_VERBOSE")
	os.Unsetenv("PROCPIPE_MAX_ARGS")
	os.Unsetenv("PROCPIPE_RUNS_DIR")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Verbose)
	require.Equal(t, 5, cfg.MaxArgs)
	require.Equal(t, ".procpipe/runs", cfg.RunsDir)
	require.Equal(t, process.Brief(5), cfg.Verbosity())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PROCPIPE_VERBOSE", "true")
	t.Setenv("PROCPIPE_MAX_ARGS", "2")
	t.Setenv("PROCPIPE_RUNS_DIR", "/tmp/runs")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Verbose)
	require.Equal(t, 2, cfg.MaxArgs)
	require.Equal(t, "/tmp/runs", cfg.RunsDir)
	require.Equal(t, process.Verbose, cfg.Verbosity())
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("PROCPIPE_MAX_ARGS", "many")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("PROCPIPE_MAX_ARGS", "-1")
	_, err = Load()
	require.Error(t, err)
}

func TestParsePipeline(t *testing.T) {
	t.Parallel()
	data := []byte(`
stages:
  - program: echo
    args: ["-e", "a\\nb\\nc"]
  - program: grep
    args: [b]
  - program: wc
`)
	p, err := ParsePipeline(data)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	require.Equal(t, "echo -e a\\nb\\nc\n\t| grep b\n\t| wc", p.Display(process.Verbose))
}

func TestParsePipelineErrors(t *testing.T) {
	t.Parallel()
	for name, data := range map[string]string{
		"no stages":     "stages: []\n",
		"empty program": "stages:\n  - args: [x]\n",
		"bad yaml":      "stages: [\n",
	} {
		_, err := ParsePipeline([]byte(data))
		require.Error(t, err, name)
	}

	_, err := ParsePipeline([]byte("stages:\n  - args: [x]\n"))
	require.ErrorIs(t, err, process.ErrEmptyProgram)
}

func TestLoadPipeline(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages:\n  - program: ls\n  - program: sort\n    args: [-r]\n"), 0600))

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	require.Equal(t, "ls\n\t| sort -r", p.String())

	_, err = LoadPipeline(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
