package sass

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsUnknownStyle(t *testing.T) {
	t.Parallel()

	_, err := New(transform.Env{}, Options{Style: "nested", Binary: "sass"})
	assert.ErrorContains(t, err, "unknown style 'nested'")
}

func TestApply_WithoutSourcesDoesNotStartCompiler(t *testing.T) {
	t.Parallel()

	// A binary that cannot exist proves the compiler is never started.
	tr, err := New(transform.Env{}, Options{Style: "compressed", Binary: "/nonexistent/sass"})
	require.NoError(t, err)

	out, err := tr.Apply(context.Background(), []*transform.File{
		{Path: "normalize.css", Contents: []byte("html{}")},
		{Path: "_variables.scss", Contents: []byte("$c: red;")},
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "normalize.css", out[0].Path)
}

func TestApply_MissingCompilerFails(t *testing.T) {
	t.Parallel()

	tr, err := New(transform.Env{}, Options{Style: "compressed", Binary: "/nonexistent/sass"})
	require.NoError(t, err)

	_, err = tr.Apply(context.Background(), []*transform.File{{Path: "main.scss", Contents: []byte("a{b:c}")}})
	assert.ErrorContains(t, err, "failed to start sass compiler")
}

func TestApply_Compiles(t *testing.T) {
	t.Parallel()

	bin, err := exec.LookPath("sass")
	if err != nil {
		t.Skip("dart-sass is not installed")
	}
	tr, err := New(transform.Env{}, Options{Style: "compressed", Binary: bin})
	require.NoError(t, err)

	out, err := tr.Apply(context.Background(), []*transform.File{
		{Path: "pages/main.scss", Contents: []byte("$c: red; .a { .b { color: $c; } }")},
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "pages/main.css", out[0].Path)
	assert.Equal(t, ".a .b{color:red}", strings.TrimSpace(string(out[0].Contents)))

	_, err = tr.Apply(context.Background(), []*transform.File{{Path: "bad.scss", Contents: []byte(".a { color: ")}})
	assert.ErrorContains(t, err, "failed to compile bad.scss")
}
