package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/session"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/specialistvlad/assetgrid/internal/watch"
)

const defaultWorkers = 8

// Builder prepares tasks for one session.
type Builder struct {
	reg       *registry.Registry
	converter config.Converter
	session   *session.Session
	env       transform.Env

	// WatchOptions are passed to every watch dispatcher.
	WatchOptions []watch.Option
}

// New creates a builder. Relative paths resolve against the session root.
func New(reg *registry.Registry, converter config.Converter, sess *session.Session, workers int) *Builder {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Builder{
		reg:       reg,
		converter: converter,
		session:   sess,
		env:       transform.Env{Root: sess.Root(), Workers: workers},
	}
}

// Build prepares every task in model, sorted by name. All problems are
// reported together.
func (b *Builder) Build(ctx context.Context, model *config.Model) ([]*task.Task, error) {
	logger := ctxlog.FromContext(ctx)

	names := make([]string, 0, len(model.Tasks))
	for name := range model.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	built := make(map[string]*task.Task, len(names))
	var errs []string
	build := func(ct *config.Task) {
		t, err := b.buildTask(ctx, ct, built)
		if err != nil {
			errs = append(errs, fmt.Sprintf("task '%s': %v", ct.Name, err))
			return
		}
		built[ct.Name] = t
	}

	// Watch rules reference other tasks, so they are bound last.
	for _, name := range names {
		if ct := model.Tasks[name]; ct.Kind != config.TaskWatch {
			build(ct)
		}
	}
	for _, name := range names {
		if ct := model.Tasks[name]; ct.Kind == config.TaskWatch {
			build(ct)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to prepare tasks:\n- %s", strings.Join(errs, "\n- "))
	}

	tasks := make([]*task.Task, 0, len(built))
	for _, name := range names {
		tasks = append(tasks, built[name])
	}
	logger.Debug("Tasks prepared.", "count", len(tasks))
	return tasks, nil
}

func (b *Builder) buildTask(ctx context.Context, ct *config.Task, built map[string]*task.Task) (*task.Task, error) {
	switch ct.Kind {
	case config.TaskPipe:
		return b.buildPipe(ctx, ct)
	case config.TaskClean:
		return b.buildClean(ct), nil
	case config.TaskServe:
		return b.buildServe(ct), nil
	case config.TaskWatch:
		return b.buildWatch(ct, built)
	default:
		return nil, fmt.Errorf("unknown task kind '%s'", ct.Kind)
	}
}

// buildTransforms resolves and configures a pipe task's transform chain.
func (b *Builder) buildTransforms(ctx context.Context, ct *config.Task) ([]transform.Transform, error) {
	var chain []transform.Transform
	var errs []string
	for i, tr := range ct.Transforms {
		rt, ok := b.reg.Transform(tr.Kind)
		if !ok {
			errs = append(errs, fmt.Sprintf("transform %d: unknown kind '%s' (known: %s)", i+1, tr.Kind, strings.Join(b.reg.TransformKinds(), ", ")))
			continue
		}
		opts := rt.NewOptions()
		if err := b.converter.DecodeOptions(ctx, tr.Options, opts); err != nil {
			errs = append(errs, fmt.Sprintf("transform %d (%s): %v", i+1, tr.Kind, err))
			continue
		}
		t, err := rt.New(b.env, opts)
		if err != nil {
			errs = append(errs, fmt.Sprintf("transform %d (%s): %v", i+1, tr.Kind, err))
			continue
		}
		chain = append(chain, t)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return chain, nil
}

// awaitEnd blocks a long-running task until its context ends or the session
// closes underneath it.
func (b *Builder) awaitEnd(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-b.session.Done():
	}
}

// sessionEnded maps a start failure of a long-running task. A session that
// was already ended by a failing sibling service is not a failure of its own.
func (b *Builder) sessionEnded(err error) error {
	if errors.Is(err, session.ErrClosed) && b.session.Err() != nil {
		return nil
	}
	return err
}
