package agent

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	talklog "github.com/holon-run/talkd/pkg/log"
	"github.com/holon-run/talkd/pkg/talk"
)

const (
	defaultInterval = time.Minute
	defaultWorkers  = 4
	debounce        = 200 * time.Millisecond
)

// Runner runs an agent over every talk of a store: on each tick and
// whenever a talk file changes. Talks are processed concurrently, one pass
// per talk at a time.
type Runner struct {
	Store    *talk.Store
	Agent    Agent
	Interval time.Duration
	Workers  int

	mu   sync.Mutex
	busy map[string]bool
	// seen is each talk file's state after our last pass over it, so the
	// pass's own writes do not trigger another one.
	seen map[string]stamp
}

// stamp identifies one version of a talk file.
type stamp struct {
	path string
	mod  time.Time
	size int64
}

func stampOf(path string) (stamp, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}, false
	}
	return stamp{path: path, mod: info.ModTime(), size: info.Size()}, true
}

// RunOnce makes one pass over all talks. Per-talk failures are logged and
// do not stop the pass; only a failure to list the talks is returned.
func (r *Runner) RunOnce(ctx context.Context) error {
	names, err := r.Store.List()
	if err != nil {
		return err
	}
	r.runTalks(ctx, names)
	return nil
}

// Run polls until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := os.MkdirAll(r.Store.Dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create talks dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to watch talks: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(r.Store.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.Store.Dir(), err)
	}

	interval := r.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	talklog.Info("pipeline started", "talks", r.Store.Dir(), "interval", interval, "workers", r.workers())

	if err := r.RunOnce(ctx); err != nil {
		talklog.Error("pass failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	flush := time.NewTicker(debounce)
	defer flush.Stop()
	changed := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			talklog.Info("pipeline stopped")
			return nil
		case <-ticker.C:
			clear(changed)
			if err := r.RunOnce(ctx); err != nil {
				talklog.Error("pass failed", "error", err)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			if name, ok := r.Store.NameOf(event.Name); ok {
				changed[name] = true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			talklog.Warn("watcher error", "error", err)
		case <-flush.C:
			if len(changed) == 0 {
				continue
			}
			names := make([]string, 0, len(changed))
			for name := range changed {
				if r.changedSincePass(name) {
					names = append(names, name)
				}
			}
			clear(changed)
			if len(names) == 0 {
				continue
			}
			talklog.Debug("talks changed", "talks", names)
			r.runTalks(ctx, names)
		}
	}
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return defaultWorkers
}

func (r *Runner) runTalks(ctx context.Context, names []string) {
	var g errgroup.Group
	g.SetLimit(r.workers())
	for _, name := range names {
		if !r.acquire(name) {
			continue
		}
		g.Go(func() error {
			defer r.release(name)
			r.runTalk(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) runTalk(ctx context.Context, name string) {
	t, err := r.Store.Get(name)
	if err != nil {
		talklog.Error("failed to open talk", "talk", name, "error", err)
		return
	}
	if err := r.Agent.Execute(ctx, t); err != nil {
		talklog.Error("pipeline failed", "talk", name, "error", err)
	}
	if st, ok := stampOf(t.Path()); ok {
		r.mu.Lock()
		if r.seen == nil {
			r.seen = make(map[string]stamp)
		}
		r.seen[name] = st
		r.mu.Unlock()
	}
}

// changedSincePass reports whether the talk file differs from what our
// last pass over it left behind.
func (r *Runner) changedSincePass(name string) bool {
	r.mu.Lock()
	last, ok := r.seen[name]
	r.mu.Unlock()
	if !ok {
		return true
	}
	current, exists := stampOf(last.path)
	return !exists || !current.mod.Equal(last.mod) || current.size != last.size
}

// acquire marks a talk busy, reporting false when a pass is already on it.
func (r *Runner) acquire(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.busy == nil {
		r.busy = make(map[string]bool)
	}
	if r.busy[name] {
		return false
	}
	r.busy[name] = true
	return true
}

func (r *Runner) release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.busy, name)
}
