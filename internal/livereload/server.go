package livereload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/zishang520/socket.io/v2/socket"
)

// ReloadEvent is the socket.io event name carrying a reload signal.
const ReloadEvent = "reload"

// Options configures a Server.
type Options struct {
	// BaseDir is the directory served at "/".
	BaseDir string
	// Host defaults to all interfaces.
	Host string
	// Port 0 selects an ephemeral port.
	Port int
}

// Server is the development HTTP server with its live-reload channel.
type Server struct {
	opts Options

	mu      sync.Mutex
	io      *socket.Server
	httpSrv *http.Server
	ln      net.Listener
	addr    string
	logger  *slog.Logger
	done    chan struct{}
	stopped bool

	clients atomic.Int64
}

// New creates a server. Nothing listens until Start.
func New(opts Options) *Server {
	return &Server{opts: opts}
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.New("live-reload server stopped")
	}
	if s.ln != nil {
		return errors.New("live-reload server already started")
	}

	s.logger = ctxlog.FromContext(ctx).With("component", "livereload")

	s.io = socket.NewServer(nil, nil)
	s.io.On("connection", func(args ...any) {
		client := args[0].(*socket.Socket)
		s.clients.Add(1)
		s.logger.Debug("Browser connected.", "sid", client.Id())
		client.On("disconnect", func(...any) {
			s.clients.Add(-1)
			s.logger.Debug("Browser disconnected.", "sid", client.Id())
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	mux.HandleFunc(HealthPath, s.healthHandler)
	mux.HandleFunc(ClientPath, serveClient)
	mux.Handle("/", newStaticHandler(s.opts.BaseDir))

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.io.Close(nil)
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	s.httpSrv = &http.Server{Handler: mux}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Live-reload server failed unexpectedly.", "error", err)
		}
	}()

	s.logger.Info("🌐 Development server started.", "url", urlFor(s.addr), "base_dir", s.opts.BaseDir)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// URL returns the base URL browsers should open.
func (s *Server) URL() string {
	return urlFor(s.Addr())
}

func urlFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Clients returns the number of connected browsers.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Reload tells every connected browser that paths changed.
func (s *Server) Reload(ctx context.Context, paths []string) error {
	s.mu.Lock()
	io := s.io
	s.mu.Unlock()
	if io == nil {
		return errors.New("live-reload server not started")
	}
	ctxlog.FromContext(ctx).Debug("Sending reload.", "paths", paths, "clients", s.Clients())
	if paths == nil {
		paths = []string{}
	}
	io.Emit(ReloadEvent, map[string]any{"paths": paths})
	return nil
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.httpSrv == nil {
		return nil
	}

	s.logger.Info("🌐 Shutting down development server...")
	s.io.Close(nil)
	err := s.httpSrv.Shutdown(ctx)
	<-s.done
	if err != nil {
		s.logger.Error("Development server shutdown failed.", "error", err)
		return err
	}
	s.logger.Debug("Development server shut down gracefully.")
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
