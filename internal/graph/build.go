package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// TaskSource resolves task identifiers to prepared tasks.
type TaskSource interface {
	Task(name string) (*task.Task, bool)
}

// Build resolves entry, the name of a pipeline or of a single task, into a
// graph. Every unknown reference is reported in one error; a pipeline that
// reaches itself through its stages is rejected.
func Build(entry string, pipelines map[string]*config.Pipeline, tasks TaskSource) (*Node, error) {
	b := &builder{
		pipelines: pipelines,
		tasks:     tasks,
		visiting:  make(map[string]bool),
		unknown:   make(map[string]struct{}),
	}

	root := b.resolve(entry, "entry point")
	if len(b.errs) == 0 && len(b.unknown) > 0 {
		names := make([]string, 0, len(b.unknown))
		for n := range b.unknown {
			names = append(names, n)
		}
		sort.Strings(names)
		b.errs = append(b.errs, fmt.Sprintf("unknown task or pipeline: %s", strings.Join(names, ", ")))
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("failed to build graph for '%s':\n- %s", entry, strings.Join(b.errs, "\n- "))
	}

	assignIDs(root)
	return root, nil
}

type builder struct {
	pipelines map[string]*config.Pipeline
	tasks     TaskSource
	visiting  map[string]bool
	unknown   map[string]struct{}
	errs      []string
}

func (b *builder) resolve(name, referrer string) *Node {
	p, isPipeline := b.pipelines[name]
	t, isTask := b.tasks.Task(name)

	switch {
	case isPipeline && isTask:
		b.errs = append(b.errs, fmt.Sprintf("'%s' (referenced by %s) names both a pipeline and a task", name, referrer))
		return nil
	case isTask:
		return Leaf(t)
	case isPipeline:
		return b.pipeline(p)
	default:
		b.unknown[name] = struct{}{}
		return nil
	}
}

func (b *builder) pipeline(p *config.Pipeline) *Node {
	if b.visiting[p.Name] {
		b.errs = append(b.errs, fmt.Sprintf("cycle detected involving pipeline '%s'", p.Name))
		return nil
	}
	b.visiting[p.Name] = true
	defer delete(b.visiting, p.Name)

	seq := Sequence()
	seq.Name = p.Name
	for i, stage := range p.Stages {
		referrer := fmt.Sprintf("pipeline '%s' stage %d", p.Name, i+1)
		members := make([]*Node, 0, len(stage))
		for _, member := range stage {
			if n := b.resolve(member, referrer); n != nil {
				members = append(members, n)
			}
		}
		if len(stage) == 1 && len(members) == 1 {
			seq.Children = append(seq.Children, members[0])
			continue
		}
		seq.Children = append(seq.Children, Parallel(members...))
	}
	return seq
}
