package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
)

// DefaultDebounce is the delay between the first change and the action.
const DefaultDebounce = 100 * time.Millisecond

// ErrStopped is returned by Start on a dispatcher that has been stopped.
var ErrStopped = errors.New("watch dispatcher stopped")

// Action reacts to changed files, given as slash paths relative to the root.
type Action func(ctx context.Context, changed []string) error

// Rule binds file patterns, relative to the dispatcher root, to an action.
// A pattern starting with "!" excludes matches.
type Rule struct {
	Name     string
	Patterns []string
	Action   Action
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDebounce sets the delay between the first change and the action.
func WithDebounce(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.debounce = d }
}

// Dispatcher watches a tree and runs rule actions on matching changes.
type Dispatcher struct {
	root     string
	debounce time.Duration
	workers  []*worker

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	watched map[string]bool
	bases   []string
	// missing holds base directories that did not exist yet; their nearest
	// existing ancestor is watched until they appear.
	missing map[string]bool
	started bool
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dispatcher for rules rooted at root. Rules are fixed for the
// lifetime of the dispatcher.
func New(root string, rules []Rule, opts ...Option) (*Dispatcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		root:     abs,
		debounce: DefaultDebounce,
		watched:  make(map[string]bool),
		missing:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	for i, r := range rules {
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("rule %d (%s) has no patterns", i+1, r.Name)
		}
		if r.Action == nil {
			return nil, fmt.Errorf("rule %d (%s) has no action", i+1, r.Name)
		}
		d.workers = append(d.workers, &worker{
			rule:    r,
			trigger: make(chan struct{}, 1),
			pending: make(map[string]struct{}),
		})
	}
	return d, nil
}

// Start subscribes to the file system and returns. Watching continues until
// ctx ends or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	if d.started {
		return errors.New("watch dispatcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	d.fsw = fsw

	d.bases = d.baseDirs()
	for _, dir := range d.bases {
		if isDir(dir) {
			if err := d.addRecursive(dir); err != nil {
				fsw.Close()
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			continue
		}
		d.missing[dir] = true
		parent, err := d.watchAncestor(dir)
		if err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Info("Watch base directory does not exist yet, waiting for it.", "dir", dir, "watching", parent)
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.started = true

	for _, w := range d.workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			w.loop(ctx, d.debounce)
		}()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop(ctx)
	}()

	logger.Info("👀 Watching for changes.", "root", d.root, "rules", len(d.workers), "dirs", len(d.watched))
	return nil
}

// Stop ends watching and waits for running actions to return. It is safe to
// call more than once.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}
	d.cancel()
	d.wg.Wait()
	return d.fsw.Close()
}

// WatchedDirs returns the directories currently subscribed to, sorted.
func (d *Dispatcher) WatchedDirs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	dirs := make([]string, 0, len(d.watched))
	for dir := range d.watched {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// baseDirs returns the static directory of every inclusion pattern.
func (d *Dispatcher) baseDirs() []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, w := range d.workers {
		include, _ := fsutil.SplitNegations(w.rule.Patterns)
		for _, p := range include {
			dir := filepath.Join(d.root, filepath.FromSlash(fsutil.Base(p)))
			if _, ok := seen[dir]; !ok {
				seen[dir] = struct{}{}
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// addRecursive subscribes to dir and every directory below it. The caller
// holds d.mu.
func (d *Dispatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if p != dir && skipDir(entry.Name()) {
			return filepath.SkipDir
		}
		if d.watched[p] {
			return nil
		}
		if err := d.fsw.Add(p); err != nil {
			return err
		}
		d.watched[p] = true
		return nil
	})
}

// watchAncestor subscribes to the nearest existing ancestor of dir, without
// descending into it. The caller holds d.mu.
func (d *Dispatcher) watchAncestor(dir string) (string, error) {
	parent := filepath.Dir(dir)
	for !isDir(parent) {
		next := filepath.Dir(parent)
		if next == parent {
			return "", fmt.Errorf("no existing ancestor of %s", dir)
		}
		parent = next
	}
	if !d.watched[parent] {
		if err := d.fsw.Add(parent); err != nil {
			return "", err
		}
		d.watched[parent] = true
	}
	return parent, nil
}

// resolveMissing subscribes to base directories that have appeared since
// Start and returns them. Bases still absent move their subscription to
// the nearest ancestor that now exists. The caller holds d.mu.
func (d *Dispatcher) resolveMissing(ctx context.Context) []string {
	var appeared []string
	for dir := range d.missing {
		if !isDir(dir) {
			if _, err := d.watchAncestor(dir); err != nil {
				ctxlog.FromContext(ctx).Warn("Failed to watch ancestor directory.", "dir", dir, "error", err)
			}
			continue
		}
		delete(d.missing, dir)
		if err := d.addRecursive(dir); err != nil {
			ctxlog.FromContext(ctx).Warn("Failed to watch new directory.", "dir", dir, "error", err)
			continue
		}
		ctxlog.FromContext(ctx).Debug("Watch base directory appeared.", "dir", dir)
		appeared = append(appeared, dir)
	}
	return appeared
}

// underBase reports whether p is a base directory or lies below one.
func (d *Dispatcher) underBase(p string) bool {
	for _, b := range d.bases {
		if p == b || strings.HasPrefix(p, b+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func skipDir(name string) bool {
	return name == "node_modules" || (len(name) > 1 && name[0] == '.')
}

func (d *Dispatcher) loop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.fsw.Events:
			if !ok {
				return
			}
			d.handle(ctx, ev)
		case err, ok := <-d.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	if ev.Has(fsnotify.Create) && isDir(ev.Name) {
		var scan []string
		d.mu.Lock()
		if d.underBase(ev.Name) {
			if err := d.addRecursive(ev.Name); err != nil {
				ctxlog.FromContext(ctx).Warn("Failed to watch new directory.", "dir", ev.Name, "error", err)
			}
			scan = append(scan, ev.Name)
		}
		if len(d.missing) > 0 {
			scan = append(scan, d.resolveMissing(ctx)...)
		}
		d.mu.Unlock()
		// Files may have landed before the subscription existed.
		for _, dir := range scan {
			_ = filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
				if err == nil && !entry.IsDir() {
					d.dispatch(ctx, p)
				}
				return nil
			})
		}
		return
	}
	d.dispatch(ctx, ev.Name)
}

func (d *Dispatcher) dispatch(ctx context.Context, name string) {
	rel, err := filepath.Rel(d.root, name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	for _, w := range d.workers {
		if fsutil.MatchAny(w.rule.Patterns, rel) {
			ctxlog.FromContext(ctx).Debug("Change matched watch rule.", "rule", w.rule.Name, "path", rel)
			w.notify(rel)
		}
	}
}
