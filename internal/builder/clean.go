package builder

import (
	"context"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/failure"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/task"
)

func (b *Builder) buildClean(ct *config.Task) *task.Task {
	paths := append([]string(nil), ct.Paths...)
	return &task.Task{
		Name:        ct.Name,
		Kind:        task.KindClean,
		Description: ct.Description,
		Dest:        paths,
		Run: func(ctx context.Context) error {
			removed, err := fsutil.Clean(b.env.Root, paths)
			if err != nil {
				return failure.Filesystem(err)
			}
			ctxlog.FromContext(ctx).Info("🧹 Cleaned.", "targets", paths, "removed", len(removed))
			return nil
		},
	}
}
