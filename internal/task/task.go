// Package task defines the typed descriptor of a runnable unit of work.
package task

import "context"

// Kind identifies what a task does, which the app uses to validate where a
// task may appear (a production pipeline may never serve or watch).
type Kind string

const (
	KindPipe  Kind = "pipe"
	KindClean Kind = "clean"
	KindServe Kind = "serve"
	KindWatch Kind = "watch"
)

// Task represents a unit of work that is fully prepared for execution. It
// is the output of the builder and the leaf payload of a graph.
type Task struct {
	Name        string
	Kind        Kind
	Description string

	// Dest is the output location a pipe task writes to, or the paths a
	// clean task removes. Empty for serve and watch tasks.
	Dest []string

	// Run performs the work. Re-invoking Run must only overwrite previous
	// output, never corrupt it.
	Run func(ctx context.Context) error
}

// LongRunning reports whether the task blocks until its context ends.
func (t *Task) LongRunning() bool {
	return t.Kind == KindServe || t.Kind == KindWatch
}
