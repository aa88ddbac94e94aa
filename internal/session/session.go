// Package session owns the process-scoped services of one application run:
// the development server and the watch dispatchers. Tasks reach them through
// the session instead of through globals, so independent sessions can run
// side by side.
package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/livereload"
	"github.com/specialistvlad/assetgrid/internal/watch"
)

// ErrClosed is returned when starting a service on a closed session.
var ErrClosed = errors.New("session closed")

// Session manages the lifecycle of the development server and watchers.
type Session struct {
	root string

	mu       sync.Mutex
	server   *livereload.Server
	watchers []*watch.Dispatcher
	closed   bool
	cause    error
	done     chan struct{}
}

// New creates a session whose relative paths resolve against root.
func New(root string) *Session {
	return &Session{root: root, done: make(chan struct{})}
}

// Done is closed when the session closes, either through Close or because
// one of its services failed to start.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the service failure that ended the session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Root returns the directory relative paths resolve against.
func (s *Session) Root() string {
	return s.root
}

// StartServer starts the development server. A session runs at most one.
func (s *Session) StartServer(ctx context.Context, opts livereload.Options) (*livereload.Server, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.server != nil {
		s.mu.Unlock()
		return nil, errors.New("development server already running in this session")
	}

	if !filepath.IsAbs(opts.BaseDir) {
		opts.BaseDir = filepath.Join(s.root, opts.BaseDir)
	}
	srv := livereload.New(opts)
	if err := srv.Start(ctx); err != nil {
		s.mu.Unlock()
		return nil, s.fail(ctx, err)
	}
	s.server = srv
	s.mu.Unlock()
	return srv, nil
}

// Server returns the running development server, or nil.
func (s *Session) Server() *livereload.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server
}

// StartWatch starts a dispatcher for rules rooted at the session root.
func (s *Session) StartWatch(ctx context.Context, rules []watch.Rule, opts ...watch.Option) (*watch.Dispatcher, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	d, err := watch.New(s.root, rules, opts...)
	if err == nil {
		err = d.Start(ctx)
	}
	if err != nil {
		s.mu.Unlock()
		return nil, s.fail(ctx, err)
	}
	s.watchers = append(s.watchers, d)
	s.mu.Unlock()
	return d, nil
}

// fail records err as the reason the session ended and closes it, so the
// services already running stop with it.
func (s *Session) fail(ctx context.Context, err error) error {
	s.mu.Lock()
	if s.cause == nil && !s.closed {
		s.cause = err
	}
	s.mu.Unlock()
	ctxlog.FromContext(ctx).Warn("Session service failed to start, closing session.", "error", err)
	_ = s.Close(ctx)
	return err
}

// Reload signals connected browsers. Without a running server, as in a
// production build, it does nothing.
func (s *Session) Reload(ctx context.Context, paths []string) error {
	srv := s.Server()
	if srv == nil {
		ctxlog.FromContext(ctx).Debug("No development server running, reload skipped.")
		return nil
	}
	return srv.Reload(ctx, paths)
}

// Close stops every watcher and the server. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	watchers, server := s.watchers, s.server
	s.watchers, s.server = nil, nil
	s.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Closing session.", "watchers", len(watchers), "server", server != nil)

	var errs []error
	for _, w := range watchers {
		errs = append(errs, w.Stop())
	}
	if server != nil {
		errs = append(errs, server.Stop(ctx))
	}
	return errors.Join(errs...)
}
