package watch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

type worker struct {
	rule    Rule
	trigger chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
}

func (w *worker) notify(rel string) {
	w.mu.Lock()
	w.pending[rel] = struct{}{}
	w.mu.Unlock()

	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *worker) take() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(paths)
	return paths
}

func (w *worker) loop(ctx context.Context, debounce time.Duration) {
	logger := ctxlog.FromContext(ctx).With("rule", w.rule.Name)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger:
		}

		if debounce > 0 {
			timer := time.NewTimer(debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		changed := w.take()
		if len(changed) == 0 {
			continue
		}
		logger.Info("🔁 Change detected.", "files", changed)
		if err := w.rule.Action(ctx, changed); err != nil {
			logger.Error("Watch action failed, still watching.", "error", err)
		}
	}
}
