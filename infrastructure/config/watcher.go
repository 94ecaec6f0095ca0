package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domaincfg "lifetree-backend/domain/config"
)

const debounceDelay = 500 * time.Millisecond

// TuningWatcher hot-reloads the physics tuning file. It watches the file's
// directory rather than the file itself, since editors typically replace
// files by rename.
type TuningWatcher struct {
	path    string
	apply   func(domaincfg.PhysicsConfig) error
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTuningWatcher starts watching the tuning file at path. Every settled
// change is parsed, validated, and handed to apply.
func NewTuningWatcher(path string, apply func(domaincfg.PhysicsConfig) error, logger *zap.Logger) (*TuningWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &TuningWatcher{
		path:    filepath.Clean(path),
		apply:   apply,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
	}

	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch tuning directory: %w", err)
	}

	go w.watchLoop()

	logger.Info("Tuning hot reloading enabled", zap.String("file", w.path))
	return w, nil
}

// watchLoop monitors for file changes and triggers reloads.
func (w *TuningWatcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Tuning watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// reload parses the tuning file and applies it. A broken file leaves the
// running tuning untouched.
func (w *TuningWatcher) reload() {
	cfg, err := LoadTuningFile(w.path)
	if err != nil {
		w.logger.Error("Ignoring invalid tuning file", zap.Error(err))
		return
	}

	if err := w.apply(cfg); err != nil {
		w.logger.Error("Failed to apply tuning", zap.Error(err))
		return
	}

	w.logger.Info("Tuning reloaded",
		zap.String("file", w.path),
		zap.Float64("repulsion_strength", cfg.RepulsionStrength),
		zap.Float64("spring_length", cfg.SpringLength),
		zap.Float64("friction", cfg.Friction),
	)
}

// Stop stops the watcher
func (w *TuningWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}
