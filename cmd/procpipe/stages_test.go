package main

import (
	"os"
	"path/filepath"
	"testing"

	"procpipe/internal/process"

	"github.com/stretchr/testify/require"
)

func TestSplitStages(t *testing.T) {
	stages, err := splitStages([]string{"echo", "-e", `a\nb\nc`, "|", "grep", "b"})
	require.NoError(t, err)
	require.Len(t, stages, 2)
	require.Equal(t, "echo -e a\\nb\\nc", stages[0].Display(process.Verbose))
	require.Equal(t, "grep b", stages[1].Display(process.Verbose))

	stages, err = splitStages([]string{"ls"})
	require.NoError(t, err)
	require.Len(t, stages, 1)
}

func TestSplitStagesEmpty(t *testing.T) {
	for _, args := range [][]string{
		{"|", "grep", "b"},
		{"echo", "|"},
		{"echo", "|", "|", "cat"},
	} {
		_, err := splitStages(args)
		require.Error(t, err, "%q", args)
	}
}

func TestLoadPipeline(t *testing.T) {
	p, err := loadPipeline("", []string{"echo", "hi", "|", "cat"})
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	_, err = loadPipeline("", nil)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages:\n  - program: echo\n  - program: cat\n"), 0600))
	p, err = loadPipeline(path, nil)
	require.NoError(t, err)
	require.Equal(t, "echo\n\t| cat", p.String())

	_, err = loadPipeline(path, []string{"ls"})
	require.Error(t, err)
}
