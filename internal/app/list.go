package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// List prints every pipeline with its stages, followed by every task.
func (a *App) List(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	names := make([]string, 0, len(a.model.Pipelines))
	for name := range a.model.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(tw, "PIPELINES")
	for _, name := range names {
		p := a.model.Pipelines[name]
		stages := make([]string, 0, len(p.Stages))
		for _, s := range p.Stages {
			stages = append(stages, "["+strings.Join(s, ", ")+"]")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", name, strings.Join(stages, " → "), p.Description)
	}

	fmt.Fprintln(tw, "TASKS")
	for _, name := range a.registry.TaskNames() {
		t, _ := a.registry.Task(name)
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", name, t.Kind, t.Description)
	}
	return tw.Flush()
}
