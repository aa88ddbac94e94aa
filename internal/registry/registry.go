package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/transform"
)

// Module is the interface that all transform modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredTransform holds the compiled Go parts of a transform kind.
type RegisteredTransform struct {
	// NewOptions returns a pointer to a fresh options struct that the config
	// converter decodes the transform block into.
	NewOptions func() any
	// New builds the transform from the decoded options.
	New func(env transform.Env, opts any) (transform.Transform, error)
}

// Registry holds all registered transforms and tasks for a single
// application instance.
type Registry struct {
	transforms map[string]*RegisteredTransform
	tasks      map[string]*task.Task
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		transforms: make(map[string]*RegisteredTransform),
		tasks:      make(map[string]*task.Task),
	}
}

// RegisterTransform registers the constructor for a transform kind.
func (r *Registry) RegisterTransform(kind string, handler *RegisteredTransform) {
	if _, exists := r.transforms[kind]; exists {
		panic(fmt.Sprintf("transform with kind '%s' already registered", kind))
	}
	slog.Debug("Registering transform.", "kind", kind)
	r.transforms[kind] = handler
}

// Transform looks up a transform kind.
func (r *Registry) Transform(kind string) (*RegisteredTransform, bool) {
	h, ok := r.transforms[kind]
	return h, ok
}

// TransformKinds returns all registered transform kinds, sorted.
func (r *Registry) TransformKinds() []string {
	return sortedKeys(r.transforms)
}

// RegisterTask adds a prepared task descriptor.
func (r *Registry) RegisterTask(t *task.Task) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("task must have a name")
	}
	if t.Run == nil {
		return fmt.Errorf("task '%s' has no run function", t.Name)
	}
	if _, exists := r.tasks[t.Name]; exists {
		return fmt.Errorf("task '%s' already registered", t.Name)
	}
	r.tasks[t.Name] = t
	return nil
}

// Task looks up a task by identifier.
func (r *Registry) Task(name string) (*task.Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// TaskNames returns all registered task identifiers, sorted.
func (r *Registry) TaskNames() []string {
	return sortedKeys(r.tasks)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
