package builder

import (
	"context"
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/failure"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/watch"
)

func (b *Builder) buildWatch(ct *config.Task, built map[string]*task.Task) (*task.Task, error) {
	rules := make([]watch.Rule, 0, len(ct.Rules))
	for i, r := range ct.Rules {
		rule, err := b.bindRule(r, built)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}

	return &task.Task{
		Name:        ct.Name,
		Kind:        task.KindWatch,
		Description: ct.Description,
		Run: func(ctx context.Context) error {
			if _, err := b.session.StartWatch(ctx, rules, b.WatchOptions...); err != nil {
				return b.sessionEnded(err)
			}
			b.awaitEnd(ctx)
			return nil
		},
	}, nil
}

// bindRule resolves a rule's task reference into an action.
func (b *Builder) bindRule(r *config.WatchRule, built map[string]*task.Task) (watch.Rule, error) {
	var target *task.Task
	name := "reload"
	if r.Task != "" {
		t, ok := built[r.Task]
		if !ok {
			return watch.Rule{}, fmt.Errorf("unknown task '%s'", r.Task)
		}
		if t.LongRunning() {
			return watch.Rule{}, fmt.Errorf("task '%s' is a %s task and cannot be triggered by a change", r.Task, t.Kind)
		}
		target = t
		name = t.Name
	}
	reload := r.Reload

	return watch.Rule{
		Name:     name,
		Patterns: append([]string(nil), r.Patterns...),
		Action: func(ctx context.Context, changed []string) error {
			if target != nil {
				if err := target.Run(ctx); err != nil {
					return failure.Wrap(target.Name, err)
				}
			}
			if reload {
				return b.session.Reload(ctx, changed)
			}
			return nil
		},
	}, nil
}
