package settings

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay lets a burst of WAL writes settle before reloading.
const reloadDelay = 200 * time.Millisecond

// Watch reloads preferences whenever another process writes the database file
// at dbPath. It blocks until ctx is done.
func (s *Service) Watch(ctx context.Context, dbPath string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	dbPath = filepath.Clean(dbPath)
	if err := w.Add(filepath.Dir(dbPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(dbPath), err)
	}
	base := filepath.Base(dbPath)

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
		prev := s.Get()
		next, err := s.Load(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("failed to reload preferences", slog.String("error", err.Error()))
			}
			return
		}
		if !equal(prev, next) {
			s.logger.Debug("preferences reloaded")
			s.notify()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			// SQLite writes through the -wal and -journal side files as well.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, reload)
			mu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("preference watcher error", slog.String("error", err.Error()))
		}
	}
}

func equal(a, b Preferences) bool {
	return a.ClientID == b.ClientID &&
		a.GridHeightFixed == b.GridHeightFixed &&
		a.AutoScroll == b.AutoScroll &&
		a.Mosaic == b.Mosaic &&
		maps.Equal(a.PageSizes, b.PageSizes) &&
		maps.Equal(a.Collapsed, b.Collapsed)
}
