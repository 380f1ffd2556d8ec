// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce is the quiet period before a change is reported.
const DefaultWatchDebounce = 200 * time.Millisecond

// ErrAlreadyWatching is returned by Watch when a watcher is running.
var ErrAlreadyWatching = errors.New("agent registry already watched")

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// agentWatcher reports changed agent ids after a debounce.
type agentWatcher struct {
	reg      *Registry
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(id string)

	mu      sync.Mutex
	pending map[string]time.Time // agent id -> last change time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Watch starts watching the registry directory. onChange is called with the
// id of each agent whose files changed, after the cache entry is dropped.
// It runs on a watcher goroutine. Stop with Close.
func (r *Registry) Watch(debounce time.Duration, onChange func(id string)) error {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if r.watcher != nil {
		return ErrAlreadyWatching
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &agentWatcher{
		reg:      r,
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}
	if err := w.addAll(); err != nil {
		cancel()
		fsw.Close()
		return err
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	r.watcher = w
	return nil
}

// Close stops the watcher, if any.
func (r *Registry) Close() error {
	r.watchMu.Lock()
	w := r.watcher
	r.watcher = nil
	r.watchMu.Unlock()
	if w == nil {
		return nil
	}

	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// addAll watches the root and every agent directory.
func (w *agentWatcher) addAll() error {
	if err := w.watcher.Add(w.reg.dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.reg.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.watcher.Add(filepath.Join(w.reg.dir, e.Name())); err != nil {
				w.reg.logger.Warn("cannot watch agent dir", zap.String("agent_id", e.Name()), zap.Error(err))
			}
		}
	}
	return nil
}

// agentID maps a changed path to the agent it belongs to.
func (w *agentWatcher) agentID(path string) string {
	rel, err := filepath.Rel(w.reg.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
}

func (w *agentWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			id := w.agentID(event.Name)
			if id == "" {
				continue
			}

			// New agent directories need their own watch
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						w.reg.logger.Warn("cannot watch agent dir", zap.String("agent_id", id), zap.Error(err))
					}
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending[id] = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reg.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// processPending reports agents whose last change is older than the debounce.
func (w *agentWatcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			var ready []string

			w.mu.Lock()
			for id, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, id)
					delete(w.pending, id)
				}
			}
			w.mu.Unlock()

			for _, id := range ready {
				w.reg.Invalidate(id)
				w.reg.logger.Info("agent config changed", zap.String("agent_id", id))
				if w.onChange != nil {
					w.onChange(id)
				}
			}
		}
	}
}
