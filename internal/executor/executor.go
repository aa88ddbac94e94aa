// Package executor runs a task graph and tracks the state of every leaf.
package executor

import "context"

// Executor is responsible for orchestrating the end-to-end execution of a graph.
type Executor interface {
	Execute(ctx context.Context) error
}

var _ Executor = (*Run)(nil)
