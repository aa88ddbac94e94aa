// Package woff2 converts TrueType and OpenType fonts to WOFF2.
package woff2

import (
	"context"
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/transform"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options is empty; the block takes no arguments.
type Options struct{}

// Transform replaces .ttf and .otf files with their .woff2 encoding.
type Transform struct{}

// Apply implements transform.Transform. Other files pass through.
func (Transform) Apply(ctx context.Context, files []*transform.File) ([]*transform.File, error) {
	logger := ctxlog.FromContext(ctx)
	out := make([]*transform.File, 0, len(files))
	for _, f := range files {
		switch f.Ext() {
		case ".ttf", ".otf":
		default:
			out = append(out, f)
			continue
		}
		data, err := Encode(f.Contents)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", f.Path, err)
		}
		w := f.WithExt(".woff2")
		w.Contents = data
		logger.Debug("Font converted.", "file", f.Path, "from", len(f.Contents), "to", len(data))
		out = append(out, w)
	}
	return out, nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("woff2", &registry.RegisteredTransform{
		NewOptions: func() any { return new(Options) },
		New: func(transform.Env, any) (transform.Transform, error) {
			return Transform{}, nil
		},
	})
}
