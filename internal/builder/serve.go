package builder

import (
	"context"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/livereload"
	"github.com/specialistvlad/assetgrid/internal/task"
)

func (b *Builder) buildServe(ct *config.Task) *task.Task {
	opts := livereload.Options{
		BaseDir: ct.Serve.BaseDir,
		Host:    ct.Serve.Host,
		Port:    ct.Serve.Port,
	}
	return &task.Task{
		Name:        ct.Name,
		Kind:        task.KindServe,
		Description: ct.Description,
		Run: func(ctx context.Context) error {
			if _, err := b.session.StartServer(ctx, opts); err != nil {
				return b.sessionEnded(err)
			}
			b.awaitEnd(ctx)
			return nil
		},
	}
}
