// Package precompress adds gzip and brotli encoded siblings next to text
// assets so a static file server can hand out pre-encoded responses.
package precompress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/transform"
)

// Formats that are already compressed gain nothing from a second pass.
var skipExt = map[string]bool{
	".gz": true, ".br": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".woff2": true, ".woff": true, ".zip": true,
}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Options defines the arguments of a precompress transform block.
type Options struct {
	Gzip    bool `hcl:"gzip,optional"`
	Brotli  bool `hcl:"brotli,optional"`
	MinSize int  `hcl:"min_size,optional"`
}

// Transform appends encoded siblings to the file set.
type Transform struct {
	opts Options
}

// New validates opts and builds the transform.
func New(opts Options) (*Transform, error) {
	if !opts.Gzip && !opts.Brotli {
		return nil, errors.New("at least one of gzip or brotli must be enabled")
	}
	if opts.MinSize < 0 {
		return nil, fmt.Errorf("min_size must not be negative, got %d", opts.MinSize)
	}
	return &Transform{opts: opts}, nil
}

// Apply implements transform.Transform. Every input is passed through.
func (t *Transform) Apply(ctx context.Context, files []*transform.File) ([]*transform.File, error) {
	out := make([]*transform.File, 0, len(files))
	out = append(out, files...)
	added := 0
	for _, f := range files {
		if skipExt[f.Ext()] || len(f.Contents) < t.opts.MinSize {
			continue
		}
		if t.opts.Gzip {
			data, err := encode(f.Contents, func(w io.Writer) (io.WriteCloser, error) {
				return gzip.NewWriterLevel(w, gzip.BestCompression)
			})
			if err != nil {
				return nil, fmt.Errorf("%s: gzip: %w", f.Path, err)
			}
			out = append(out, &transform.File{Path: f.Path + ".gz", Contents: data})
			added++
		}
		if t.opts.Brotli {
			data, err := encode(f.Contents, func(w io.Writer) (io.WriteCloser, error) {
				return brotli.NewWriterLevel(w, brotli.BestCompression), nil
			})
			if err != nil {
				return nil, fmt.Errorf("%s: brotli: %w", f.Path, err)
			}
			out = append(out, &transform.File{Path: f.Path + ".br", Contents: data})
			added++
		}
	}
	ctxlog.FromContext(ctx).Debug("Precompressed siblings added.", "count", added)
	return out, nil
}

func encode(data []byte, newWriter func(io.Writer) (io.WriteCloser, error)) ([]byte, error) {
	var buf bytes.Buffer
	w, err := newWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Register registers the transform with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransform("precompress", &registry.RegisteredTransform{
		NewOptions: func() any { return &Options{Gzip: true, Brotli: true} },
		New: func(_ transform.Env, opts any) (transform.Transform, error) {
			return New(*opts.(*Options))
		},
	})
}
