// Package esbuild minifies scripts and stylesheets with esbuild. Browser
// targets drive syntax lowering and CSS vendor prefixing.
package esbuild

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/transform"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the arguments of an esbuild transform block.
type Options struct {
	Loader    string   `hcl:"loader,optional"`
	Minify    bool     `hcl:"minify,optional"`
	Targets   []string `hcl:"targets,optional"`
	Sourcemap bool     `hcl:"sourcemap,optional"`
	Strict    bool     `hcl:"strict,optional"`
}

var loaders = map[string]api.Loader{
	"js":  api.LoaderJS,
	"jsx": api.LoaderJSX,
	"ts":  api.LoaderTS,
	"tsx": api.LoaderTSX,
	"css": api.LoaderCSS,
}

var extLoaders = map[string]string{
	".js":  "js",
	".mjs": "js",
	".cjs": "js",
	".jsx": "jsx",
	".ts":  "ts",
	".tsx": "tsx",
	".css": "css",
}

var engines = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"safari":  api.EngineSafari,
	"opera":   api.EngineOpera,
	"node":    api.EngineNode,
}

var esTargets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// Transform minifies supported files and passes every other file through.
type Transform struct {
	opts    Options
	target  api.Target
	engines []api.Engine
}

// New validates opts and builds the transform.
func New(opts Options) (*Transform, error) {
	if opts.Loader != "" {
		if _, ok := loaders[opts.Loader]; !ok {
			return nil, fmt.Errorf("unknown loader '%s'", opts.Loader)
		}
	}
	t := &Transform{opts: opts, target: api.DefaultTarget}
	for _, raw := range opts.Targets {
		target, engine, err := parseTarget(raw)
		if err != nil {
			return nil, err
		}
		if engine != nil {
			t.engines = append(t.engines, *engine)
		} else {
			t.target = target
		}
	}
	return t, nil
}

// parseTarget accepts "es2017", "esnext" or an engine with a version such
// as "chrome58" or "safari11.1".
func parseTarget(raw string) (api.Target, *api.Engine, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if t, ok := esTargets[s]; ok {
		return t, nil, nil
	}
	i := strings.IndexAny(s, "0123456789")
	if i <= 0 {
		return 0, nil, fmt.Errorf("invalid target '%s'", raw)
	}
	name, ok := engines[s[:i]]
	if !ok {
		return 0, nil, fmt.Errorf("unknown target engine '%s'", s[:i])
	}
	return 0, &api.Engine{Name: name, Version: s[i:]}, nil
}

func (t *Transform) loaderFor(f *transform.File) (string, bool) {
	if t.opts.Loader != "" {
		return t.opts.Loader, true
	}
	l, ok := extLoaders[f.Ext()]
	return l, ok
}

// Apply implements transform.Transform.
func (t *Transform) Apply(ctx context.Context, files []*transform.File) ([]*transform.File, error) {
	logger := ctxlog.FromContext(ctx)

	out := make([]*transform.File, 0, len(files))
	for _, f := range files {
		loader, ok := t.loaderFor(f)
		if !ok {
			out = append(out, f)
			continue
		}

		opts := api.TransformOptions{
			Loader:            loaders[loader],
			Target:            t.target,
			Engines:           t.engines,
			MinifyWhitespace:  t.opts.Minify,
			MinifyIdentifiers: t.opts.Minify,
			MinifySyntax:      t.opts.Minify,
			Sourcefile:        f.Path,
			LogLevel:          api.LogLevelSilent,
		}
		if t.opts.Sourcemap {
			opts.Sourcemap = api.SourceMapExternal
		}

		res := api.Transform(string(f.Contents), opts)
		if len(res.Errors) > 0 {
			return nil, fmt.Errorf("%s: %s", f.Path, formatMessages(res.Errors))
		}
		if len(res.Warnings) > 0 {
			if t.opts.Strict {
				return nil, fmt.Errorf("%s: warnings treated as errors: %s", f.Path, formatMessages(res.Warnings))
			}
			logger.Warn("esbuild reported warnings.", "file", f.Path, "warnings", formatMessages(res.Warnings))
		}

		minified := *f
		if loader == "ts" || loader == "tsx" || loader == "jsx" {
			minified = *f.WithExt(".js")
		}
		minified.Contents = res.Code
		out = append(out, &minified)

		if t.opts.Sourcemap && len(res.Map) > 0 {
			mapName := path.Base(minified.Path) + ".map"
			minified.Contents = append(minified.Contents, sourceMappingComment(loader, mapName)...)
			out = append(out, &transform.File{Path: minified.Path + ".map", Contents: res.Map})
		}
	}
	return out, nil
}

func sourceMappingComment(loader, name string) string {
	if loader == "css" {
		return "/*# sourceMappingURL=" + name + " */\n"
	}
	return "//# sourceMappingURL=" + name + "\n"
}

func formatMessages(msgs []api.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("esbuild", &registry.RegisteredTransform{
		NewOptions: func() any { return &Options{Minify: true} },
		New: func(_ transform.Env, opts any) (transform.Transform, error) {
			return New(*opts.(*Options))
		},
	})
}
