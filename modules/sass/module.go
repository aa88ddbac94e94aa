// Package sass compiles SCSS and indented Sass sources to CSS through an
// embedded Dart Sass process.
package sass

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bep/godartsass/v2"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/transform"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the arguments of a sass transform block.
type Options struct {
	Style        string   `hcl:"style,optional"`
	Binary       string   `hcl:"binary,optional"`
	IncludePaths []string `hcl:"include_paths,optional"`
}

// Transform compiles stylesheet sources and passes every other file through.
type Transform struct {
	style        godartsass.OutputStyle
	binary       string
	includePaths []string
}

// New validates opts and builds the transform. Include paths resolve
// against env.Root.
func New(env transform.Env, opts Options) (*Transform, error) {
	style := godartsass.ParseOutputStyle(opts.Style)
	if !strings.EqualFold(string(style), opts.Style) {
		return nil, fmt.Errorf("unknown style '%s' (want expanded or compressed)", opts.Style)
	}
	t := &Transform{style: style, binary: opts.Binary}
	for _, p := range opts.IncludePaths {
		t.includePaths = append(t.includePaths, env.Resolve(p))
	}
	return t, nil
}

func syntaxOf(f *transform.File) (godartsass.SourceSyntax, bool) {
	switch f.Ext() {
	case ".scss":
		return godartsass.SourceSyntaxSCSS, true
	case ".sass":
		return godartsass.SourceSyntaxSASS, true
	default:
		return "", false
	}
}

func isPartial(f *transform.File) bool {
	return strings.HasPrefix(path.Base(f.Path), "_")
}

// Apply implements transform.Transform. Partials are dropped from the output;
// they are only reachable through imports. The compiler process is started
// only when there is something to compile.
func (t *Transform) Apply(ctx context.Context, files []*transform.File) ([]*transform.File, error) {
	logger := ctxlog.FromContext(ctx)

	var pending int
	for _, f := range files {
		if _, ok := syntaxOf(f); ok && !isPartial(f) {
			pending++
		}
	}
	if pending == 0 {
		out := make([]*transform.File, 0, len(files))
		for _, f := range files {
			if _, ok := syntaxOf(f); !ok {
				out = append(out, f)
			}
		}
		return out, nil
	}

	logger.Debug("Starting Dart Sass.", "binary", t.binary, "files", pending)
	compiler, err := godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: t.binary})
	if err != nil {
		return nil, fmt.Errorf("failed to start sass compiler '%s': %w", t.binary, err)
	}
	defer compiler.Close()

	out := make([]*transform.File, 0, len(files))
	for _, f := range files {
		syntax, ok := syntaxOf(f)
		if !ok {
			out = append(out, f)
			continue
		}
		if isPartial(f) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		includes := t.includePaths
		if f.Source != "" {
			includes = append([]string{filepath.Dir(f.Source)}, includes...)
		}
		res, err := compiler.Execute(godartsass.Args{
			Source:       string(f.Contents),
			OutputStyle:  t.style,
			SourceSyntax: syntax,
			IncludePaths: includes,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", f.Path, err)
		}
		css := f.WithExt(".css")
		css.Contents = []byte(res.CSS)
		out = append(out, css)
	}
	return out, nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("sass", &registry.RegisteredTransform{
		NewOptions: func() any { return &Options{Style: "compressed", Binary: "sass"} },
		New: func(env transform.Env, opts any) (transform.Transform, error) {
			return New(env, *opts.(*Options))
		},
	})
}
