package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce groups the writes an editor makes when saving a file.
const debounce = 100 * time.Millisecond

var ErrAlreadyWatching = errors.New("already watching")

// Watcher reports changes to C sources below a set of directories. Writes
// that arrive together are reported as one batch.
type Watcher struct {
	dirs     []string
	onChange func(ctx context.Context, paths []string)
	logger   *zap.Logger

	mu       sync.Mutex
	watching bool
}

func NewWatcher(dirs []string, logger *zap.Logger, onChange func(ctx context.Context, paths []string)) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{dirs: dirs, onChange: onChange, logger: logger}
}

// IsSource reports whether path is a C source or header.
func IsSource(path string) bool {
	switch filepath.Ext(path) {
	case ".c", ".h":
		return true
	}
	return false
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return ErrAlreadyWatching
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("creating watcher: %w", err)
	}
	w.watching = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		fw.Close()
	}()

	for _, dir := range w.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return fw.Add(path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	return w.loop(ctx, fw)
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) || !IsSource(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		case <-timer.C:
			paths := slices.Sorted(maps.Keys(pending))
			clear(pending)
			w.logger.Debug("sources changed", zap.Strings("paths", paths))
			w.onChange(ctx, paths)
		}
	}
}
