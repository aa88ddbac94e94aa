package precompress

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(files []*transform.File) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestApply_AddsDecodableSiblings(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	css := []byte(strings.Repeat("body{margin:0}", 64))
	tr, err := New(Options{Gzip: true, Brotli: true})
	require.NoError(t, err)

	// --- Act ---
	out, err := tr.Apply(context.Background(), []*transform.File{
		{Path: "css/style.min.css", Contents: css},
		{Path: "images/a.png", Contents: []byte("png")},
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"css/style.min.css", "images/a.png", "css/style.min.css.gz", "css/style.min.css.br"}, paths(out))

	gz, err := gzip.NewReader(bytes.NewReader(out[2].Contents))
	require.NoError(t, err)
	plain, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, css, plain)

	plain, err = io.ReadAll(brotli.NewReader(bytes.NewReader(out[3].Contents)))
	require.NoError(t, err)
	assert.Equal(t, css, plain)
}

func TestApply_MinSizeAndSingleFormat(t *testing.T) {
	t.Parallel()

	tr, err := New(Options{Brotli: true, MinSize: 10})
	require.NoError(t, err)

	out, err := tr.Apply(context.Background(), []*transform.File{
		{Path: "tiny.js", Contents: []byte("a()")},
		{Path: "main.js", Contents: []byte("console.log(1)")},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"tiny.js", "main.js", "main.js.br"}, paths(out))
}

func TestNew_InvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	assert.ErrorContains(t, err, "at least one of gzip or brotli")

	_, err = New(Options{Gzip: true, MinSize: -1})
	assert.ErrorContains(t, err, "min_size must not be negative")
}
