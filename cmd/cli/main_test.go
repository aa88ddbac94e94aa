package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		task "styles" {
			src = ["a.css"]
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0o600))
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-config", filePath, "-root", tempDir})

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to load configuration")
	assert.ErrorContains(t, err, "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, []string{"--this-is-not-a-valid-flag"})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_ListBuiltInPipelines(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"-list", "-log-level", "error", "-root", t.TempDir()})

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "PIPELINES")
	assert.Contains(t, out.String(), "svgSprite")
}
