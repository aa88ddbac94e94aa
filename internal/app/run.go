package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/executor"
	"github.com/specialistvlad/assetgrid/internal/graph"
)

const shutdownTimeout = 5 * time.Second

// Run executes entry, a pipeline or a single task name, and stops the
// session's server and watchers afterwards. An empty entry runs the
// development pipeline. Cancelling ctx while a serve or watch task is
// active ends the run cleanly.
func (a *App) Run(ctx context.Context, entry string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if entry == "" {
		entry = config.DevelopmentPipeline
	}
	a.logger.Debug("App.Run method started.", "entry", entry)

	root, err := graph.Build(entry, a.model.Pipelines, a.registry)
	if err != nil {
		return err
	}
	a.logger.Debug("Execution graph built.", "graph", root.String(), "tasks", len(root.Tasks()))

	run := executor.New(root)
	runErr := run.Execute(ctx)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.session.Close(stopCtx); err != nil {
		a.logger.Warn("Session did not stop cleanly.", "error", err)
	}

	if runErr != nil {
		if ctx.Err() != nil && errors.Is(runErr, ctx.Err()) && longRunningStarted(run) {
			a.logger.Info("👋 Session stopped.")
			return nil
		}
		return fmt.Errorf("'%s' failed: %w", entry, runErr)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// longRunningStarted reports whether a serve or watch leaf of run has left
// the pending state.
func longRunningStarted(run *executor.Run) bool {
	states := run.Snapshot()
	started := false
	run.Root().Walk(func(n *graph.Node) bool {
		if n.Kind == graph.KindLeaf && n.Task.LongRunning() && states[n.ID] != executor.Pending {
			started = true
		}
		return !started
	})
	return started
}
