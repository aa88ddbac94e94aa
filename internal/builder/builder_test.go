package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/failure"
	"github.com/specialistvlad/assetgrid/internal/hcl"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/session"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/specialistvlad/assetgrid/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testModule registers an "upper" transform and a "fail" transform.
type testModule struct{}

func (testModule) Register(r *registry.Registry) {
	r.RegisterTransform("upper", &registry.RegisteredTransform{
		NewOptions: func() any { return new(struct{}) },
		New: func(transform.Env, any) (transform.Transform, error) {
			return transform.Func(func(_ context.Context, files []*transform.File) ([]*transform.File, error) {
				out := make([]*transform.File, 0, len(files))
				for _, f := range files {
					cp := *f
					cp.Contents = []byte(strings.ToUpper(string(f.Contents)))
					out = append(out, &cp)
				}
				return out, nil
			}), nil
		},
	})
	r.RegisterTransform("fail", &registry.RegisteredTransform{
		NewOptions: func() any { return new(struct{}) },
		New: func(transform.Env, any) (transform.Transform, error) {
			return transform.Func(func(context.Context, []*transform.File) ([]*transform.File, error) {
				return nil, errors.New("malformed input")
			}), nil
		},
	})
}

func newBuilder(t *testing.T, root string) (*Builder, *session.Session) {
	t.Helper()
	reg := registry.New()
	testModule{}.Register(reg)
	sess := session.New(root)
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	b := New(reg, hcl.NewConverter(), sess, 2)
	b.WatchOptions = []watch.Option{watch.WithDebounce(10 * time.Millisecond)}
	return b, sess
}

func pipe(name string, src []string, dest string, kinds ...string) *config.Task {
	ct := &config.Task{Name: name, Kind: config.TaskPipe, Src: src, Dest: dest}
	for _, k := range kinds {
		ct.Transforms = append(ct.Transforms, &config.Transform{Kind: k})
	}
	return ct
}

func buildOne(t *testing.T, b *Builder, model *config.Model, name string) *task.Task {
	t.Helper()
	tasks, err := b.Build(context.Background(), model)
	require.NoError(t, err)
	for _, tk := range tasks {
		if tk.Name == name {
			return tk
		}
	}
	t.Fatalf("task %s not built", name)
	return nil
}

func TestPipe_WritesTransformedFilesUnderDest(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"src/a.txt":        "a",
		"src/nested/b.txt": "b",
		"src/skip.md":      "skip",
		"vendor/extra.txt": "extra",
	})
	b, _ := newBuilder(t, root)
	model := config.NewModel()
	model.Tasks["copy"] = pipe("copy", []string{"vendor/extra.txt", "vendor/missing.txt", "src/**/*.txt"}, "out", "upper")

	// --- Act ---
	tk := buildOne(t, b, model, "copy")
	err := tk.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"out"}, tk.Dest)
	assert.Equal(t, "A", testutil.ReadFile(t, root, "out/a.txt"))
	assert.Equal(t, "B", testutil.ReadFile(t, root, "out/nested/b.txt"))
	assert.Equal(t, "EXTRA", testutil.ReadFile(t, root, "out/extra.txt"))
	assert.False(t, testutil.Exists(root, "out/skip.md"))

	// Re-running overwrites.
	testutil.WriteTree(t, root, map[string]string{"src/a.txt": "again"})
	require.NoError(t, tk.Run(context.Background()))
	assert.Equal(t, "AGAIN", testutil.ReadFile(t, root, "out/a.txt"))
}

func TestPipe_FailingTransformWritesNothing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"src/a.txt": "a"})
	b, _ := newBuilder(t, root)
	model := config.NewModel()
	model.Tasks["broken"] = pipe("broken", []string{"src/*.txt"}, "out", "upper", "fail")

	// --- Act ---
	err := buildOne(t, b, model, "broken").Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.ErrorIs(t, failure.Wrap("broken", err), failure.ErrTransform)
	assert.False(t, testutil.Exists(root, "out"))
}

func TestBuild_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	b, _ := newBuilder(t, t.TempDir())
	model := config.NewModel()
	model.Tasks["a"] = pipe("a", []string{"x"}, "out", "nope")
	model.Tasks["serve"] = &config.Task{Name: "serve", Kind: config.TaskServe, Serve: &config.Serve{BaseDir: "app"}}
	model.Tasks["w"] = &config.Task{Name: "w", Kind: config.TaskWatch, Rules: []*config.WatchRule{
		{Patterns: []string{"x/*"}, Task: "ghost"},
	}}
	model.Tasks["w2"] = &config.Task{Name: "w2", Kind: config.TaskWatch, Rules: []*config.WatchRule{
		{Patterns: []string{"x/*"}, Task: "serve"},
	}}

	_, err := b.Build(context.Background(), model)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind 'nope' (known: fail, upper)")
	assert.Contains(t, err.Error(), "unknown task 'ghost'")
	assert.Contains(t, err.Error(), "task 'serve' is a serve task")
}

func TestClean_IsIdempotent(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"app/css/style.min.css": "x",
		"app/js/main.min.js":    "x",
		"app/js/main.js":        "keep",
	})
	b, _ := newBuilder(t, root)
	model := config.NewModel()
	model.Tasks["clean"] = &config.Task{Name: "clean", Kind: config.TaskClean, Paths: []string{"app/css", "app/js/main.min.js", "app/fonts"}}
	tk := buildOne(t, b, model, "clean")

	// --- Act ---
	require.NoError(t, tk.Run(context.Background()))
	require.NoError(t, tk.Run(context.Background()))

	// --- Assert ---
	assert.False(t, testutil.Exists(root, "app/css"))
	assert.False(t, testutil.Exists(root, "app/js/main.min.js"))
	assert.True(t, testutil.Exists(root, "app/js/main.js"))
}

func TestServe_RunsUntilContextEnds(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"app/index.html": "<body></body>"})
	b, sess := newBuilder(t, root)
	model := config.NewModel()
	model.Tasks["serve"] = &config.Task{Name: "serve", Kind: config.TaskServe, Serve: &config.Serve{BaseDir: "app", Host: "127.0.0.1"}}
	tk := buildOne(t, b, model, "serve")
	ctx, cancel := context.WithCancel(context.Background())

	// --- Act ---
	done := make(chan error, 1)
	go func() { done <- tk.Run(ctx) }()
	require.Eventually(t, func() bool { return sess.Server() != nil }, 5*time.Second, 10*time.Millisecond)
	cancel()

	// --- Assert ---
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve task did not return after cancellation")
	}
	assert.True(t, tk.LongRunning())
}

func TestWatch_ChangeRerunsTask(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"src/a.txt": "one"})
	b, _ := newBuilder(t, root)
	model := config.NewModel()
	model.Tasks["copy"] = pipe("copy", []string{"src/*.txt"}, "out", "upper")
	model.Tasks["watching"] = &config.Task{Name: "watching", Kind: config.TaskWatch, Rules: []*config.WatchRule{
		{Patterns: []string{"src/*.txt"}, Task: "copy", Reload: true},
	}}
	tk := buildOne(t, b, model, "watching")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = tk.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// --- Act ---
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.txt"), []byte("two"), 0o644))

	// --- Assert ---
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(root, "out", "a.txt"))
		return err == nil && string(data) == "TWO"
	}, 5*time.Second, 20*time.Millisecond)
}
