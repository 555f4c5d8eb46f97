package app

import (
	"context"
	"log/slog"
	"sync"

	"structmap/internal/core/watcher"
	"structmap/internal/shared/util"
)

// BuildHandler receives the outcome of every rebuild triggered by the watcher.
type BuildHandler func(res *Result, err error)

// WatchSession rebuilds the structure map from scratch whenever a source file
// under the root changes. Rebuilds are serialized and throttled to at most
// one per watch.min_interval.
type WatchSession struct {
	app     *App
	watcher *watcher.Watcher
	limiter *util.Limiter
	handler BuildHandler

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	wg     sync.WaitGroup

	// stateMu guards closed and every wg.Add, so no rebuild can register
	// once Close has started waiting.
	stateMu sync.Mutex
	closed  bool
}

func (a *App) StartWatch(ctx context.Context, handler BuildHandler) (*WatchSession, error) {
	if handler == nil {
		handler = func(*Result, error) {}
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &WatchSession{
		app:     a,
		limiter: util.NewIntervalLimiter(a.Config.Watch.MinInterval),
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}

	w, err := watcher.NewWatcher(a.Root, a.Config.Watch.Debounce, a.excludes, s.onChange)
	if err != nil {
		cancel()
		return nil, err
	}
	w.SetExtensions(a.SupportedExtensions())
	if err := w.Watch(); err != nil {
		cancel()
		_ = w.Close()
		return nil, err
	}
	s.watcher = w

	slog.Info("watching for changes", "root", a.Root, "debounce", a.Config.Watch.Debounce)
	return s, nil
}

func (s *WatchSession) onChange(paths []string) {
	s.stateMu.Lock()
	if s.closed || s.ctx.Err() != nil {
		s.stateMu.Unlock()
		return
	}
	s.wg.Add(1)
	s.stateMu.Unlock()
	defer s.wg.Done()

	// The limiter token is taken before the lock so a burst of batches
	// collapses into the next allowed slot.
	if err := s.limiter.Wait(s.ctx, 1); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	slog.Info("change detected, rebuilding", "files", len(paths))
	res, err := s.app.Build(s.ctx)
	if err != nil {
		slog.Error("rebuild failed", "error", err)
	}
	s.handler(res, err)
}

// Close stops the watcher and waits for an in-flight rebuild to finish.
func (s *WatchSession) Close() error {
	s.stateMu.Lock()
	s.closed = true
	s.stateMu.Unlock()

	s.cancel()
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}
