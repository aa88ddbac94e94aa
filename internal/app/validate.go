package app

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/graph"
	"github.com/specialistvlad/assetgrid/internal/task"
)

// validate checks the invariants of the two entry pipelines and reports
// every violation at once.
func (a *App) validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for name := range a.model.Pipelines {
		if _, ok := a.registry.Task(name); ok {
			errs = append(errs, fmt.Sprintf("'%s' is declared both as a pipeline and as a task", name))
		}
	}

	graphs := make(map[string]*graph.Node, 2)
	for _, entry := range []string{config.DevelopmentPipeline, config.ProductionPipeline} {
		if _, ok := a.model.Pipelines[entry]; !ok {
			errs = append(errs, fmt.Sprintf("pipeline '%s' is not defined", entry))
			continue
		}
		g, err := graph.Build(entry, a.model.Pipelines, a.registry)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		logger.Debug("Entry pipeline resolved.", "pipeline", entry, "graph", g.String())
		for _, u := range uncleanedOutputs(g) {
			logger.Warn("Output is never cleaned, stale files may survive a rebuild.", "pipeline", entry, "task", u.task, "dest", u.dir)
		}
		graphs[entry] = g
	}

	if prod := graphs[config.ProductionPipeline]; prod != nil {
		for _, t := range prod.Tasks() {
			if t.LongRunning() {
				errs = append(errs, fmt.Sprintf("pipeline '%s' must not reach %s task '%s'", config.ProductionPipeline, t.Kind, t.Name))
			}
		}
		if dev := graphs[config.DevelopmentPipeline]; dev != nil {
			errs = append(errs, overlappingOutputs(dev, prod)...)
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

type output struct {
	task string
	dir  string
}

// outputs lists the locations the tasks of g write to or remove.
func outputs(g *graph.Node) []output {
	var out []output
	for _, t := range g.Tasks() {
		if t.Kind == task.KindPipe || t.Kind == task.KindClean {
			out = append(out, outputsOf(t)...)
		}
	}
	return out
}

func outputsOf(t *task.Task) []output {
	out := make([]output, 0, len(t.Dest))
	for _, d := range t.Dest {
		p := path.Clean(filepath.ToSlash(d))
		if fsutil.IsGlob(p) {
			p = fsutil.Base(p)
		}
		out = append(out, output{task: t.Name, dir: p})
	}
	return out
}

func overlaps(a, b string) bool {
	if a == "." || b == "." || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

// overlappingOutputs reports every production output that shares files with
// a development output.
func overlappingOutputs(dev, prod *graph.Node) []string {
	var errs []string
	devOut := outputs(dev)
	for _, p := range outputs(prod) {
		for _, d := range devOut {
			if overlaps(p.dir, d.dir) {
				errs = append(errs, fmt.Sprintf("output '%s' of '%s' overlaps output '%s' of '%s'", p.dir, p.task, d.dir, d.task))
			}
		}
	}
	return errs
}

// uncleanedOutputs lists pipe task destinations that no clean task of g
// covers.
func uncleanedOutputs(g *graph.Node) []output {
	var cleaned, written []output
	for _, t := range g.Tasks() {
		switch t.Kind {
		case task.KindClean:
			cleaned = append(cleaned, outputsOf(t)...)
		case task.KindPipe:
			written = append(written, outputsOf(t)...)
		}
	}
	var out []output
	for _, w := range written {
		covered := false
		for _, c := range cleaned {
			if overlaps(w.dir, c.dir) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, w)
		}
	}
	return out
}
