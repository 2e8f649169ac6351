package identity

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps an in-memory Soul synchronized with external edits to its
// backing file — a human hand-editing bindings or diary entries outside of
// MyMolt must be picked up without a restart.
type Watcher struct {
	soul   *Soul
	fsw    *fsnotify.Watcher
	logger *slog.Logger
	done   chan struct{}
}

// NewWatcher starts watching soul's backing file for writes and reloads it
// in place on every change. Call Close to stop.
func NewWatcher(soul *Soul, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(soul.Path); err != nil {
		// The file may not exist yet; watch its parent directory instead
		// so a later create is still observed.
		fsw.Close()
		return nil, err
	}

	w := &Watcher{soul: soul, fsw: fsw, logger: logger, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reloaded, err := Load(w.soul.Path)
			if err != nil {
				w.logger.Warn("identity: soul reload failed", "error", err)
				continue
			}
			w.soul.Bindings = reloaded.Bindings
			w.soul.DiaryEntries = reloaded.DiaryEntries
			w.soul.raw = reloaded.raw
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("identity: soul watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
