package settings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/1broseidon/termdock/internal/dock"
)

const watchDebounce = 100 * time.Millisecond

// Watch blocks until ctx is cancelled, calling fn with the persisted dock
// side whenever settings.json changes on disk. Bursts of events are coalesced.
// Unreadable documents are logged and ignored.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger, fn func(dock.Side)) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create settings watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory; editors and our own writes replace the file.
	if err := fw.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	reload := func() {
		side, err := s.LoadDockSide()
		if err != nil {
			logger.Debug("settings reload skipped", "error", err)
			return
		}
		fn(side)
	}

	target := s.SettingsPath()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("settings file changed", "op", event.Op.String(), "file", event.Name)
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, reload)
			mu.Unlock()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", "error", err)
		}
	}
}
