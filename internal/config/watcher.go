package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"sidekick/internal/bus"
)

// debounceWindow coalesces the event bursts editors produce for a single
// save.
const debounceWindow = 200 * time.Millisecond

// Watcher reloads the config file on change and publishes the result.
type Watcher struct {
	fsw    *fsnotify.Watcher
	done   chan struct{}
	logger *zap.Logger
}

// Watch starts watching path and publishes each successfully reloaded
// Config to topic. Parse failures keep the previous config and are only
// logged.
func Watch(path string, topic *bus.Topic[*Config], logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{}), logger: logger}
	go w.run(path, topic)
	return w, nil
}

func (w *Watcher) run(path string, topic *bus.Topic[*Config]) {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	target := filepath.Clean(path)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer, timerCh = nil, nil
			cfg, err := Load(path)
			if err != nil {
				w.logger.Warn("config reload failed, keeping previous", zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded", zap.String("path", path))
			topic.Publish(cfg)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
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
