package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/failure"
	"github.com/specialistvlad/assetgrid/internal/graph"
)

// ErrAlreadyStarted is returned when Execute is called on a run that has
// already been executed or is executing.
var ErrAlreadyStarted = errors.New("pipeline run already started")

// Run is a single execution of a graph.
type Run struct {
	ID uuid.UUID

	root    *graph.Node
	started atomic.Bool

	mu     sync.RWMutex
	states map[string]State
}

// New prepares a run of root with every leaf pending.
func New(root *graph.Node) *Run {
	r := &Run{
		ID:     uuid.New(),
		root:   root,
		states: make(map[string]State),
	}
	for _, l := range root.Leaves() {
		r.states[l.ID] = Pending
	}
	return r
}

// Root returns the graph this run executes.
func (r *Run) Root() *graph.Node {
	return r.root
}

// Execute walks the graph. A sequence stops at its first failure; a parallel
// group waits for all members and reports every failure together. A leaf
// that has started is never interrupted here: cancellation reaches it only
// through ctx.
func (r *Run) Execute(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, logger := ctxlog.With(ctx, "run_id", r.ID.String())

	logger.Info("🚀 Starting pipeline run.", "graph", r.root.String())
	start := time.Now()
	err := r.run(ctx, r.root)
	if err != nil {
		logger.Error("Pipeline run failed.", "duration", time.Since(start), "failed_tasks", failure.FailedTasks(err))
		return err
	}
	logger.Info("🏁 Pipeline run finished.", "duration", time.Since(start))
	return nil
}

// Snapshot returns the current state of every leaf, keyed by leaf ID.
func (r *Run) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]State, len(r.states))
	for k, v := range r.states {
		out[k] = v
	}
	return out
}

func (r *Run) setState(id string, s State) {
	r.mu.Lock()
	r.states[id] = s
	r.mu.Unlock()
}

func (r *Run) run(ctx context.Context, n *graph.Node) error {
	switch n.Kind {
	case graph.KindLeaf:
		return r.runLeaf(ctx, n)
	case graph.KindSequence:
		return r.runSequence(ctx, n)
	case graph.KindParallel:
		return r.runParallel(ctx, n)
	default:
		return fmt.Errorf("unknown node kind %s", n.Kind)
	}
}

func (r *Run) runSequence(ctx context.Context, n *graph.Node) error {
	for _, c := range n.Children {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.run(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Run) runParallel(ctx context.Context, n *graph.Node) error {
	errs := make([]error, len(n.Children))
	var wg sync.WaitGroup
	for i, c := range n.Children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.run(ctx, c)
		}()
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return failed[0]
	default:
		return &failure.GroupError{Errs: failed}
	}
}

func (r *Run) runLeaf(ctx context.Context, n *graph.Node) error {
	ctx, logger := ctxlog.With(ctx, "task", n.Task.Name)

	r.setState(n.ID, Running)
	logger.Info("▶️ Task started.")
	start := time.Now()

	if err := n.Task.Run(ctx); err != nil {
		r.setState(n.ID, Failed)
		err = failure.Wrap(n.Task.Name, err)
		logger.Error("Task failed.", "duration", time.Since(start), "error", err)
		return err
	}

	r.setState(n.ID, Succeeded)
	logger.Info("✅ Task finished.", "duration", time.Since(start))
	return nil
}
