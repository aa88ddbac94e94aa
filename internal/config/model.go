package config

import "github.com/hashicorp/hcl/v2"

// Names of the two entry pipelines every configuration must define.
const (
	DevelopmentPipeline = "default"
	ProductionPipeline  = "build"
)

// TaskKind mirrors task.Kind at the configuration level.
type TaskKind string

const (
	TaskPipe  TaskKind = "pipe"
	TaskClean TaskKind = "clean"
	TaskServe TaskKind = "serve"
	TaskWatch TaskKind = "watch"
)

// Model is the unified, format-agnostic representation of the entire
// pipeline configuration.
type Model struct {
	Tasks     map[string]*Task
	Pipelines map[string]*Pipeline
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Tasks:     make(map[string]*Task),
		Pipelines: make(map[string]*Pipeline),
	}
}

// Task is the format-agnostic representation of any task block.
type Task struct {
	Name        string
	Kind        TaskKind
	Description string

	// Pipe tasks.
	Src        []string
	Dest       string
	Reload     bool
	Transforms []*Transform

	// Clean tasks.
	Paths []string

	// Serve tasks.
	Serve *Serve

	// Watch tasks.
	Rules []*WatchRule
}

// Transform is one step of a pipe task's transform chain. Options is
// decoded later into the registered module's options struct.
type Transform struct {
	Kind    string
	Options hcl.Body
}

// Serve configures the development server.
type Serve struct {
	BaseDir string
	Host    string
	Port    int
}

// WatchRule maps file patterns to a task or to a bare reload signal.
type WatchRule struct {
	Patterns []string
	Task     string
	Reload   bool
}

// Pipeline is an ordered list of stages; members of a stage run in parallel.
type Pipeline struct {
	Name        string
	Description string
	Stages      [][]string
}
