package esbuild

import (
	"context"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, opts Options, files ...*transform.File) ([]*transform.File, error) {
	t.Helper()
	tr, err := New(opts)
	require.NoError(t, err)
	return tr.Apply(context.Background(), files)
}

func TestApply_MinifiesScript(t *testing.T) {
	t.Parallel()

	out, err := apply(t, Options{Minify: true}, &transform.File{
		Path:     "main.min.js",
		Contents: []byte("function add(first, second) {\n  return first + second;\n}\nconsole.log(add(1, 2));\n"),
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	code := string(out[0].Contents)
	assert.NotContains(t, code, "\n  return")
	assert.Less(t, len(code), 60)
}

func TestApply_PrefixesStylesheetForTargets(t *testing.T) {
	t.Parallel()

	out, err := apply(t, Options{Minify: true, Targets: []string{"safari11"}}, &transform.File{
		Path:     "style.min.css",
		Contents: []byte(".a {\n  user-select: none;\n}\n"),
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, string(out[0].Contents), "-webkit-user-select:none")
}

func TestApply_Sourcemap(t *testing.T) {
	t.Parallel()

	out, err := apply(t, Options{Minify: true, Sourcemap: true}, &transform.File{
		Path:     "css/style.min.css",
		Contents: []byte(".a { color: red; }"),
	})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, strings.HasSuffix(string(out[0].Contents), "/*# sourceMappingURL=style.min.css.map */\n"))
	assert.Equal(t, "css/style.min.css.map", out[1].Path)
	assert.Contains(t, string(out[1].Contents), `"mappings"`)
}

func TestApply_SyntaxErrorFails(t *testing.T) {
	t.Parallel()

	_, err := apply(t, Options{Minify: true}, &transform.File{Path: "bad.js", Contents: []byte("function (")})
	assert.ErrorContains(t, err, "bad.js")
}

func TestApply_PassesThroughUnknownFiles(t *testing.T) {
	t.Parallel()

	in := &transform.File{Path: "logo.png", Contents: []byte{0x89, 'P', 'N', 'G'}}
	out, err := apply(t, Options{Minify: true}, in)

	require.NoError(t, err)
	assert.Equal(t, []*transform.File{in}, out)
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	target, engine, err := parseTarget("es2017")
	require.NoError(t, err)
	assert.Equal(t, api.ES2017, target)
	assert.Nil(t, engine)

	_, engine, err = parseTarget("Safari11.1")
	require.NoError(t, err)
	assert.Equal(t, &api.Engine{Name: api.EngineSafari, Version: "11.1"}, engine)

	_, _, err = parseTarget("netscape4")
	assert.ErrorContains(t, err, "unknown target engine")
	_, _, err = parseTarget("58")
	assert.ErrorContains(t, err, "invalid target")

	_, err = New(Options{Loader: "wasm"})
	assert.ErrorContains(t, err, "unknown loader")
}
