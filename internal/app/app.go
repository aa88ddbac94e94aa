package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/specialistvlad/assetgrid/internal/builder"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/session"
	"github.com/specialistvlad/assetgrid/internal/watch"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	registry *registry.Registry
	model    *config.Model
	session  *session.Session
}

// Option customises an App before its tasks are prepared.
type Option func(*options)

type options struct {
	modules      []registry.Module
	watchOptions []watch.Option
}

// WithModules replaces the core transform modules.
func WithModules(modules ...registry.Module) Option {
	return func(o *options) { o.modules = modules }
}

// WithWatchOptions configures every watch dispatcher the App starts.
func WithWatchOptions(opts ...watch.Option) Option {
	return func(o *options) { o.watchOptions = append(o.watchOptions, opts...) }
}

// NewApp is the constructor for the main application. It loads the
// configuration, registers the modules, prepares every task and validates
// both entry pipelines. Every configuration problem is returned as an error;
// only programmer errors such as a duplicate module registration panic.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	o := options{modules: coreModules}
	for _, opt := range opts {
		opt(&o)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	paths, err := configPaths(cfg)
	if err != nil {
		return nil, err
	}
	model, converter, err := loader.Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.", "paths", paths)

	reg := registry.New()
	for _, mod := range o.modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(o.modules))

	sess := session.New(cfg.Root)
	b := builder.New(reg, converter, sess, cfg.Workers)
	b.WatchOptions = o.watchOptions
	tasks, err := b.Build(ctx, model)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if err := reg.RegisterTask(t); err != nil {
			return nil, err
		}
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		registry: reg,
		model:    model,
		session:  sess,
	}
	if err := a.validate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Configuration validation passed.", "tasks", len(tasks), "pipelines", len(model.Pipelines))
	return a, nil
}

// configPaths picks the configuration sources: the explicit paths, else the
// project file, else none so the loader falls back to its built-in file.
func configPaths(cfg *Config) ([]string, error) {
	if len(cfg.ConfigPaths) > 0 {
		return cfg.ConfigPaths, nil
	}
	project := filepath.Join(cfg.Root, ProjectFile)
	_, err := os.Stat(project)
	switch {
	case err == nil:
		return []string{project}, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	default:
		return nil, fmt.Errorf("error accessing project file: %w", err)
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Session returns the application's session. This is primarily for testing.
func (a *App) Session() *session.Session {
	return a.session
}
