package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/failure"
	"github.com/specialistvlad/assetgrid/internal/graph"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const step = 50 * time.Millisecond

func TestExecute_SequenceRunsInOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := testutil.NewRecorder()
	root := graph.Sequence(
		graph.Leaf(rec.Task("a", step, nil)),
		graph.Leaf(rec.Task("b", 0, nil)),
		graph.Leaf(rec.Task("c", 0, nil)),
	)
	run := New(root)

	// --- Act ---
	err := run.Execute(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, rec.Order())
	for _, s := range run.Snapshot() {
		assert.Equal(t, Succeeded, s)
	}
}

func TestExecute_SequenceAbortsOnFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := testutil.NewRecorder()
	boom := errors.New("boom")
	root := graph.Sequence(
		graph.Leaf(rec.Task("a", 0, nil)),
		graph.Leaf(rec.Task("b", 0, boom)),
		graph.Leaf(rec.Task("c", 0, nil)),
	)
	run := New(root)

	// --- Act ---
	err := run.Execute(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, failure.ErrTransform)
	assert.Equal(t, []string{"b"}, failure.FailedTasks(err))
	assert.False(t, rec.Ran("c"))
	assert.Equal(t, map[string]State{"a": Succeeded, "b": Failed, "c": Pending}, run.Snapshot())
}

func TestExecute_ParallelRunsConcurrently(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := testutil.NewRecorder()
	root := graph.Parallel(
		graph.Leaf(rec.Task("a", 4*step, nil)),
		graph.Leaf(rec.Task("b", 4*step, nil)),
	)

	// --- Act ---
	start := time.Now()
	err := New(root).Execute(context.Background())
	elapsed := time.Since(start)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, rec.Overlapped("a", "b"), "parallel members should overlap")
	assert.Less(t, elapsed, 8*step)
}

func TestExecute_ParallelCollectsEveryFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := testutil.NewRecorder()
	errA := errors.New("a broke")
	errC := failure.External(errors.New("service down"))
	root := graph.Sequence(
		graph.Parallel(
			graph.Leaf(rec.Task("a", 0, errA)),
			graph.Leaf(rec.Task("b", 2*step, nil)),
			graph.Leaf(rec.Task("c", step, errC)),
		),
		graph.Leaf(rec.Task("after", 0, nil)),
	)
	run := New(root)

	// --- Act ---
	err := run.Execute(context.Background())

	// --- Assert ---
	var group *failure.GroupError
	require.ErrorAs(t, err, &group)
	assert.Len(t, group.Errs, 2)
	assert.Equal(t, []string{"a", "c"}, failure.FailedTasks(err))
	assert.ErrorIs(t, err, failure.ErrExternalService)
	assert.True(t, rec.Ran("b"), "a sibling failure must not cancel other members")
	assert.False(t, rec.Ran("after"))
	assert.Equal(t, Succeeded, run.Snapshot()["b"])
}

func TestExecute_EmptyGroupsSucceed(t *testing.T) {
	t.Parallel()

	assert.NoError(t, New(graph.Sequence()).Execute(context.Background()))
	assert.NoError(t, New(graph.Parallel()).Execute(context.Background()))
	assert.NoError(t, New(graph.Sequence(graph.Parallel(), graph.Sequence())).Execute(context.Background()))
}

func TestExecute_RejectsReentry(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	release := make(chan struct{})
	var calls atomic.Int32
	blocking := &task.Task{Name: "block", Kind: task.KindPipe, Run: func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}}
	run := New(graph.Leaf(blocking))

	done := make(chan error, 1)
	go func() { done <- run.Execute(context.Background()) }()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// --- Act ---
	err := run.Execute(context.Background())
	close(release)

	// --- Assert ---
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	require.NoError(t, <-done)
	assert.ErrorIs(t, run.Execute(context.Background()), ErrAlreadyStarted)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_CancelledSequenceStopsBeforeNextElement(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := testutil.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	first := &task.Task{Name: "first", Kind: task.KindPipe, Run: func(context.Context) error {
		cancel()
		return nil
	}}
	root := graph.Sequence(graph.Leaf(first), graph.Leaf(rec.Task("second", 0, nil)))

	// --- Act ---
	err := New(root).Execute(ctx)

	// --- Assert ---
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, rec.Ran("second"))
}

func TestState_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
