// Package transform defines the in-memory file model that flows through a
// task and the Transform contract implemented by the modules.
package transform

import (
	"context"
	"path"
	"path/filepath"
	"strings"
)

// Env describes where transforms built for a task run.
type Env struct {
	// Root is the project directory relative paths resolve against.
	Root string
	// Workers bounds per-file concurrency inside a transform.
	Workers int
}

// Resolve returns p joined to Root unless p is absolute.
func (e Env) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || e.Root == "" {
		return p
	}
	return filepath.Join(e.Root, p)
}

// File is a single file travelling through a task's transform chain.
type File struct {
	// Path is slash-separated and relative to the glob base it was read
	// from; it is also the path written under the task's destination.
	Path string
	// Source is the on-disk location the file was read from. It is empty for
	// files produced by a transform.
	Source   string
	Contents []byte
}

// Ext returns the lower-cased extension of the file, including the dot.
func (f *File) Ext() string {
	return strings.ToLower(path.Ext(f.Path))
}

// WithExt returns a copy of the file with its extension replaced.
func (f *File) WithExt(ext string) *File {
	cp := *f
	cp.Path = strings.TrimSuffix(f.Path, path.Ext(f.Path)) + ext
	return &cp
}

// Transform rewrites a set of files. Implementations must not mutate the
// input slice's files in place; they return new or passed-through files.
type Transform interface {
	Apply(ctx context.Context, files []*File) ([]*File, error)
}

// Func adapts a plain function to the Transform interface.
type Func func(ctx context.Context, files []*File) ([]*File, error)

// Apply implements Transform.
func (f Func) Apply(ctx context.Context, files []*File) ([]*File, error) {
	return f(ctx, files)
}

// Chain applies transforms in order, feeding each the output of the previous one.
func Chain(ctx context.Context, files []*File, transforms ...Transform) ([]*File, error) {
	var err error
	for _, t := range transforms {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		files, err = t.Apply(ctx, files)
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
