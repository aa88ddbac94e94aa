package transform

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upper() Transform {
	return Func(func(_ context.Context, files []*File) ([]*File, error) {
		out := make([]*File, 0, len(files))
		for _, f := range files {
			cp := *f
			cp.Contents = []byte(strings.ToUpper(string(f.Contents)))
			out = append(out, &cp)
		}
		return out, nil
	})
}

func TestChain(t *testing.T) {
	t.Parallel()

	in := []*File{{Path: "a.txt", Contents: []byte("a")}}

	t.Run("applies in order", func(t *testing.T) {
		rename := Func(func(_ context.Context, files []*File) ([]*File, error) {
			return []*File{files[0].WithExt(".md")}, nil
		})
		out, err := Chain(context.Background(), in, upper(), rename)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "a.md", out[0].Path)
		assert.Equal(t, "A", string(out[0].Contents))
		assert.Equal(t, "a", string(in[0].Contents), "input must not be mutated")
	})

	t.Run("stops on first error", func(t *testing.T) {
		called := false
		boom := Func(func(context.Context, []*File) ([]*File, error) { return nil, errors.New("boom") })
		after := Func(func(_ context.Context, f []*File) ([]*File, error) { called = true; return f, nil })

		_, err := Chain(context.Background(), in, boom, after)
		require.EqualError(t, err, "boom")
		assert.False(t, called)
	})

	t.Run("no transforms passes files through", func(t *testing.T) {
		out, err := Chain(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestFile_Ext(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ".ttf", (&File{Path: "fonts/Inter.TTF"}).Ext())
	assert.Equal(t, "", (&File{Path: "LICENSE"}).Ext())
	assert.Equal(t, "fonts/Inter.woff2", (&File{Path: "fonts/Inter.ttf"}).WithExt(".woff2").Path)
}

func TestEnv_Resolve(t *testing.T) {
	t.Parallel()

	env := Env{Root: "/project"}
	assert.Equal(t, filepath.Join("/project", "a/b"), env.Resolve("a/b"))
	assert.Equal(t, "/abs", env.Resolve("/abs"))
	assert.Equal(t, "", env.Resolve(""))
	assert.Equal(t, "rel", Env{}.Resolve("rel"))
}
