package hcl

import (
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/config"
)

const defaultServePort = 3000

// translate merges the decoded blocks of one file into the model and returns
// every problem found, so a file with several mistakes is reported at once.
func (l *Loader) translate(root *fileRoot, model *config.Model) []string {
	var errs []string
	addTask := func(t *config.Task) {
		if _, dup := model.Tasks[t.Name]; dup {
			errs = append(errs, fmt.Sprintf("task '%s' is declared more than once", t.Name))
			return
		}
		model.Tasks[t.Name] = t
	}

	for _, b := range root.Tasks {
		t := &config.Task{
			Name:        b.Name,
			Kind:        config.TaskPipe,
			Description: b.Description,
			Src:         b.Src,
			Dest:        b.Dest,
			Reload:      b.Reload,
		}
		if len(b.Src) == 0 {
			errs = append(errs, fmt.Sprintf("task '%s': src must list at least one pattern", b.Name))
		}
		if b.Dest == "" {
			errs = append(errs, fmt.Sprintf("task '%s': dest must not be empty", b.Name))
		}
		for _, tr := range b.Transforms {
			t.Transforms = append(t.Transforms, &config.Transform{Kind: tr.Kind, Options: tr.Options})
		}
		addTask(t)
	}

	for _, b := range root.Cleans {
		if len(b.Paths) == 0 {
			errs = append(errs, fmt.Sprintf("clean '%s': paths must list at least one path", b.Name))
		}
		addTask(&config.Task{Name: b.Name, Kind: config.TaskClean, Description: b.Description, Paths: b.Paths})
	}

	for _, b := range root.Serves {
		port := defaultServePort
		if b.Port != nil {
			port = *b.Port
		}
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Sprintf("serve '%s': port %d is out of range", b.Name, port))
		}
		addTask(&config.Task{
			Name:        b.Name,
			Kind:        config.TaskServe,
			Description: b.Description,
			Serve:       &config.Serve{BaseDir: b.BaseDir, Host: b.Host, Port: port},
		})
	}

	for _, b := range root.Watches {
		t := &config.Task{Name: b.Name, Kind: config.TaskWatch, Description: b.Description}
		for i, r := range b.Rules {
			if len(r.Patterns) == 0 {
				errs = append(errs, fmt.Sprintf("watch '%s' rule %d: patterns must not be empty", b.Name, i+1))
			}
			if r.Task == "" && !r.Reload {
				errs = append(errs, fmt.Sprintf("watch '%s' rule %d: needs a task, reload = true, or both", b.Name, i+1))
			}
			t.Rules = append(t.Rules, &config.WatchRule{Patterns: r.Patterns, Task: r.Task, Reload: r.Reload})
		}
		addTask(t)
	}

	for _, b := range root.Pipelines {
		if _, dup := model.Pipelines[b.Name]; dup {
			errs = append(errs, fmt.Sprintf("pipeline '%s' is declared more than once", b.Name))
			continue
		}
		model.Pipelines[b.Name] = &config.Pipeline{Name: b.Name, Description: b.Description, Stages: b.Stages}
	}

	return errs
}
