package failure

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	ErrTransform       = errors.New("transform failure")
	ErrFilesystem      = errors.New("filesystem failure")
	ErrExternalService = errors.New("external service failure")
)

// TaskError is the failure signal of a single leaf task.
type TaskError struct {
	Task string
	Kind error
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task '%s' failed (%s): %v", e.Task, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause, so errors.Is matches either.
func (e *TaskError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Wrap attaches a task name and a kind to err. An error that already carries
// a TaskError is returned unchanged.
func Wrap(task string, err error) error {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) {
		return err
	}
	return &TaskError{Task: task, Kind: Classify(err), Err: err}
}

// Classify returns the kind of err. Errors that do not identify themselves
// are treated as transform failures.
func Classify(err error) error {
	switch {
	case errors.Is(err, ErrExternalService):
		return ErrExternalService
	case errors.Is(err, ErrFilesystem):
		return ErrFilesystem
	case errors.Is(err, ErrTransform):
		return ErrTransform
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return ErrFilesystem
	}
	return ErrTransform
}

// Filesystem marks err as a filesystem failure.
func Filesystem(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFilesystem, err)
}

// External marks err as an external service failure.
func External(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrExternalService, err)
}

// GroupError aggregates the failures of a parallel group. Errs preserves the
// declaration order of the failed members.
type GroupError struct {
	Errs []error
}

func (e *GroupError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d parallel task(s) failed:\n- %s", len(e.Errs), strings.Join(msgs, "\n- "))
}

func (e *GroupError) Unwrap() []error {
	return e.Errs
}

// FailedTasks lists the names of every task that failed inside err, walking
// nested groups.
func FailedTasks(err error) []string {
	var names []string
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case *TaskError:
			names = append(names, e.Task)
		case *GroupError:
			for _, inner := range e.Errs {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(e.Unwrap())
		}
	}
	walk(err)
	return names
}
