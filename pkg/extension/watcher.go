package extension

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher watches the extension pack directory and fires an
// invalidation callback when manifests change. Consumers rebuild the
// affected tool registries; the registry itself is never patched in
// place.
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger
	invalidate func()
	debounce   time.Duration
	stopCh     chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher firing invalidate on pack changes.
func NewWatcher(logger zerolog.Logger, invalidate func()) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:    watcher,
		logger:     logger,
		invalidate: invalidate,
		debounce:   500 * time.Millisecond,
		stopCh:     make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// Watch starts watching a directory
func (w *Watcher) Watch(path string) error {
	return w.watcher.Add(path)
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only pack manifests are interesting
			if !strings.HasSuffix(strings.ToLower(event.Name), ".json") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.logger.Debug().
					Str("pack", filepath.Base(event.Name)).
					Str("op", event.Op.String()).
					Msg("Extension pack change detected")

				w.scheduleInvalidate()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Extension watcher error")

		case <-w.stopCh:
			return
		}
	}
}

// scheduleInvalidate debounces bursts of filesystem events into one
// invalidation.
func (w *Watcher) scheduleInvalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.invalidate)
}
