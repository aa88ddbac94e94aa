package builder

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/failure"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"golang.org/x/sync/errgroup"
)

func (b *Builder) buildPipe(ctx context.Context, ct *config.Task) (*task.Task, error) {
	chain, err := b.buildTransforms(ctx, ct)
	if err != nil {
		return nil, err
	}

	src := append([]string(nil), ct.Src...)
	dest := ct.Dest
	reload := ct.Reload

	return &task.Task{
		Name:        ct.Name,
		Kind:        task.KindPipe,
		Description: ct.Description,
		Dest:        []string{dest},
		Run: func(ctx context.Context) error {
			logger := ctxlog.FromContext(ctx)

			files, err := b.readSources(ctx, src)
			if err != nil {
				return err
			}
			logger.Debug("Sources read.", "count", len(files))

			out, err := transform.Chain(ctx, files, chain...)
			if err != nil {
				return err
			}

			written := make([]string, 0, len(out))
			destDir := b.env.Resolve(dest)
			for _, f := range out {
				if _, err := fsutil.WriteFile(destDir, f.Path, f.Contents); err != nil {
					return failure.Filesystem(fmt.Errorf("failed to write %s: %w", f.Path, err))
				}
				written = append(written, path.Join(dest, f.Path))
			}
			logger.Info("Files written.", "dest", dest, "count", len(written))

			if reload && len(written) > 0 {
				if err := b.session.Reload(ctx, written); err != nil {
					logger.Warn("Failed to signal reload.", "error", err)
				}
			}
			return nil
		},
	}, nil
}

// readSources expands the source patterns and reads every match with bounded
// concurrency, keeping declaration order.
func (b *Builder) readSources(ctx context.Context, patterns []string) ([]*transform.File, error) {
	logger := ctxlog.FromContext(ctx)

	sel, err := fsutil.Expand(b.env.Root, patterns)
	if err != nil {
		return nil, failure.Filesystem(err)
	}
	for _, m := range sel.Missing {
		logger.Warn("Source does not exist, skipping.", "path", m)
	}

	files := make([]*transform.File, len(sel.Matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.env.Workers)
	for i, m := range sel.Matches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(m.Path)
			if err != nil {
				return failure.Filesystem(err)
			}
			files[i] = &transform.File{Path: m.Rel, Source: m.Path, Contents: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
