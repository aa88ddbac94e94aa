package graph

import (
	"context"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskMap map[string]*task.Task

func (m taskMap) Task(name string) (*task.Task, bool) {
	t, ok := m[name]
	return t, ok
}

func newTasks(names ...string) taskMap {
	m := make(taskMap)
	for _, n := range names {
		m[n] = &task.Task{Name: n, Kind: task.KindPipe, Run: func(context.Context) error { return nil }}
	}
	return m
}

func TestBuild_StagesBecomeSequenceOfParallel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tasks := newTasks("clean", "styles", "scripts", "serve", "watch")
	pipelines := map[string]*config.Pipeline{
		"default": {Name: "default", Stages: [][]string{
			{"clean"},
			{"styles", "scripts"},
			{"serve", "watch"},
		}},
	}

	// --- Act ---
	root, err := Build("default", pipelines, tasks)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, KindSequence, root.Kind)
	assert.Equal(t, "default", root.Name)
	assert.Equal(t, "seq[clean, par[styles, scripts], par[serve, watch]]", root.String())
	assert.Len(t, root.Leaves(), 5)
}

func TestBuild_SingleTaskEntry(t *testing.T) {
	t.Parallel()

	root, err := Build("styles", nil, newTasks("styles"))

	require.NoError(t, err)
	assert.Equal(t, KindLeaf, root.Kind)
	assert.Equal(t, "styles", root.ID)
}

func TestBuild_NestedPipelineAndDuplicateLeaves(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tasks := newTasks("a", "b")
	pipelines := map[string]*config.Pipeline{
		"inner": {Name: "inner", Stages: [][]string{{"a"}, {"b"}}},
		"outer": {Name: "outer", Stages: [][]string{{"inner", "a"}}},
	}

	// --- Act ---
	root, err := Build("outer", pipelines, tasks)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "seq[par[seq[a, b], a#2]]", root.String())
	assert.Len(t, root.Tasks(), 2)
}

func TestBuild_EmptyStagesAndPipelines(t *testing.T) {
	t.Parallel()

	pipelines := map[string]*config.Pipeline{
		"empty":      {Name: "empty"},
		"emptyStage": {Name: "emptyStage", Stages: [][]string{{}}},
	}

	root, err := Build("empty", pipelines, newTasks())
	require.NoError(t, err)
	assert.Empty(t, root.Children)

	root, err = Build("emptyStage", pipelines, newTasks())
	require.NoError(t, err)
	assert.Equal(t, "seq[par[]]", root.String())
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown names are reported together", func(t *testing.T) {
		pipelines := map[string]*config.Pipeline{
			"p": {Name: "p", Stages: [][]string{{"missing1"}, {"a", "missing2"}}},
		}
		_, err := Build("p", pipelines, newTasks("a"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown task or pipeline: missing1, missing2")
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := Build("nope", nil, newTasks())
		assert.ErrorContains(t, err, "unknown task or pipeline: nope")
	})

	t.Run("pipeline cycle", func(t *testing.T) {
		pipelines := map[string]*config.Pipeline{
			"x": {Name: "x", Stages: [][]string{{"y"}}},
			"y": {Name: "y", Stages: [][]string{{"a"}, {"x"}}},
		}
		_, err := Build("x", pipelines, newTasks("a"))
		assert.ErrorContains(t, err, "cycle detected involving pipeline 'x'")
	})

	t.Run("ambiguous name", func(t *testing.T) {
		pipelines := map[string]*config.Pipeline{
			"a": {Name: "a", Stages: [][]string{{"b"}}},
		}
		_, err := Build("a", pipelines, newTasks("a", "b"))
		assert.ErrorContains(t, err, "names both a pipeline and a task")
	})
}

func TestWalk_StopsDescending(t *testing.T) {
	t.Parallel()

	tasks := newTasks("a", "b", "c")
	root := Sequence(Leaf(tasks["a"]), Parallel(Leaf(tasks["b"]), Leaf(tasks["c"])))

	var visited []string
	root.Walk(func(n *Node) bool {
		visited = append(visited, n.Kind.String())
		return n.Kind != KindParallel
	})

	assert.Equal(t, []string{"sequence", "leaf", "parallel"}, visited)
}
