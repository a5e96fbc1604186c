package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces bursts of events, such as a save followed by a
// second save, into one reload.
const watchDebounce = 100 * time.Millisecond

// Watch calls fn with the library contents once immediately and again after
// every change to the directory. It blocks until ctx is cancelled.
func (l *Library) Watch(ctx context.Context, fn func(*LoadResult)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}
	l.logger.Info("Watching library", zap.String("dir", l.dir))

	reload := func() error {
		result, err := l.LoadAll()
		if err != nil {
			return err
		}
		fn(result)
		return nil
	}
	if err := reload(); err != nil {
		return err
	}

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopped watching library")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			l.logger.Debug("Library changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			if err := reload(); err != nil {
				return err
			}
		}
	}
}
