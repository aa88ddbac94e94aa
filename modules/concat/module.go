// Package concat joins every input file into a single output file.
package concat

import (
	"bytes"
	"context"
	"errors"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/transform"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the arguments of a concat transform block.
type Options struct {
	File      string `hcl:"file"`
	Separator string `hcl:"separator,optional"`
}

// Transform concatenates files in order.
type Transform struct {
	opts Options
}

// New validates opts and builds the transform.
func New(opts Options) (*Transform, error) {
	if opts.File == "" {
		return nil, errors.New("file must not be empty")
	}
	return &Transform{opts: opts}, nil
}

// Apply implements transform.Transform. No input produces no output.
func (t *Transform) Apply(ctx context.Context, files []*transform.File) ([]*transform.File, error) {
	if len(files) == 0 {
		ctxlog.FromContext(ctx).Debug("Nothing to concatenate.", "file", t.opts.File)
		return nil, nil
	}
	var buf bytes.Buffer
	for i, f := range files {
		if i > 0 {
			buf.WriteString(t.opts.Separator)
		}
		buf.Write(f.Contents)
	}
	return []*transform.File{{Path: t.opts.File, Contents: buf.Bytes()}}, nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("concat", &registry.RegisteredTransform{
		NewOptions: func() any { return &Options{Separator: "\n"} },
		New: func(_ transform.Env, opts any) (transform.Transform, error) {
			return New(*opts.(*Options))
		},
	})
}
