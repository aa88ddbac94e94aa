package concat

import (
	"context"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	t.Parallel()

	tr, err := New(Options{File: "main.min.js", Separator: ";\n"})
	require.NoError(t, err)

	out, err := tr.Apply(context.Background(), []*transform.File{
		{Path: "a.js", Contents: []byte("a()")},
		{Path: "b.js", Contents: []byte("b()")},
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "main.min.js", out[0].Path)
	assert.Equal(t, "a();\nb()", string(out[0].Contents))
}

func TestApply_NoInputNoOutput(t *testing.T) {
	t.Parallel()

	tr, err := New(Options{File: "x.css"})
	require.NoError(t, err)

	out, err := tr.Apply(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&Module{}).Register(r)
	rt, ok := r.Transform("concat")
	require.True(t, ok)

	opts := rt.NewOptions().(*Options)
	assert.Equal(t, "\n", opts.Separator)

	_, err := rt.New(transform.Env{}, opts)
	assert.ErrorContains(t, err, "file must not be empty")
}
