// Package harness runs complete assetgrid projects in temporary directories
// for the scenario tests.
package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/assetgrid/internal/app"
	"github.com/specialistvlad/assetgrid/internal/hcl"
	"github.com/specialistvlad/assetgrid/internal/livereload"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/specialistvlad/assetgrid/internal/transform"
	"github.com/specialistvlad/assetgrid/internal/watch"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Marker makes the "validate" transform reject a file.
const Marker = "!syntax-error"

// Module registers a "validate" transform that fails on any file containing
// Marker and passes everything else through.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.RegisterTransform("validate", &registry.RegisteredTransform{
		NewOptions: func() any { return new(struct{}) },
		New: func(transform.Env, any) (transform.Transform, error) {
			return transform.Func(func(_ context.Context, files []*transform.File) ([]*transform.File, error) {
				for _, f := range files {
					if bytes.Contains(f.Contents, []byte(Marker)) {
						return nil, errors.New(f.Path + ": unexpected token")
					}
				}
				return files, nil
			}), nil
		},
	})
}

// Project is an assetgrid project on disk together with its App.
type Project struct {
	Root string
	App  *app.App
	Logs *testutil.SafeBuffer
}

// New writes files under a temporary root and builds an App for it with
// the core modules plus Module.
func New(t *testing.T, files map[string]string, opts ...app.Option) *Project {
	t.Helper()
	p, err := TryNew(t, files, opts...)
	require.NoError(t, err)
	return p
}

// TryNew is New for scenarios that expect the App to be rejected.
func TryNew(t *testing.T, files map[string]string, opts ...app.Option) (*Project, error) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, files)

	cfg, err := app.NewConfig(app.Config{Root: root, LogLevel: "debug", LogFormat: "text"})
	require.NoError(t, err)

	logs := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("ASSETGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	opts = append([]app.Option{
		app.WithModules(append(app.CoreModules(), Module{})...),
		app.WithWatchOptions(watch.WithDebounce(20 * time.Millisecond)),
	}, opts...)
	a, err := app.NewApp(logs, cfg, hcl.NewLoader(), opts...)
	return &Project{Root: root, App: a, Logs: logs}, err
}

// Start runs entry in the background and returns a function that cancels
// the run and returns its result.
func (p *Project) Start(t *testing.T, entry string) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.App.Run(ctx, entry) }()

	var once sync.Once
	var result error
	stop = func() error {
		once.Do(func() {
			cancel()
			select {
			case result = <-done:
			case <-time.After(10 * time.Second):
				t.Error("run did not stop after cancellation")
			}
		})
		return result
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

// WaitForServer blocks until the session's development server is up.
func (p *Project) WaitForServer(t *testing.T) *livereload.Server {
	t.Helper()
	require.Eventually(t, func() bool { return p.App.Session().Server() != nil }, 10*time.Second, 10*time.Millisecond)
	return p.App.Session().Server()
}

// WaitForLog blocks until the log output contains substr.
func (p *Project) WaitForLog(t *testing.T, substr string) {
	t.Helper()
	require.Eventually(t, func() bool { return strings.Contains(p.Logs.String(), substr) },
		10*time.Second, 10*time.Millisecond, "log never contained %q", substr)
}

// Write replaces a file under the project root.
func (p *Project) Write(t *testing.T, name, contents string) {
	t.Helper()
	testutil.WriteTree(t, p.Root, map[string]string{name: contents})
}

// Connect attaches a socket.io client to srv and returns the paths of every
// reload event it receives.
func Connect(t *testing.T, srv *livereload.Server) <-chan []string {
	t.Helper()
	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))
	client := socket.NewManager(srv.URL(), opts).Socket("/", opts)
	t.Cleanup(func() { client.Disconnect() })

	reloads := make(chan []string, 16)
	client.On(types.EventName(livereload.ReloadEvent), func(data ...any) {
		var paths []string
		if len(data) > 0 {
			if payload, ok := data[0].(map[string]any); ok {
				list, _ := payload["paths"].([]any)
				for _, p := range list {
					if s, ok := p.(string); ok {
						paths = append(paths, s)
					}
				}
			}
		}
		select {
		case reloads <- paths:
		default:
		}
	})
	client.Connect()

	require.Eventually(t, func() bool { return srv.Clients() > 0 }, 10*time.Second, 10*time.Millisecond,
		"socket.io client never connected")
	return reloads
}

// NextReload waits for a reload event that mentions want.
func NextReload(t *testing.T, reloads <-chan []string, want string) []string {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case paths := <-reloads:
			for _, p := range paths {
				if p == want {
					return paths
				}
			}
		case <-deadline:
			t.Fatalf("no reload event mentioned %s", want)
			return nil
		}
	}
}
