// Package watch keeps a rule pack store in sync with a directory of YAML pack
// files.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gra-pca/sentinel/pkg/rulepack"
)

// Config configures a Watcher.
type Config struct {
	// Dir is the directory holding pack files.
	Dir string

	// Debounce is the quiet period before changed files are imported.
	// Default: 100ms
	Debounce time.Duration
}

// SyncResult reports one import pass.
type SyncResult struct {
	Imported []string // pack IDs
	Errors   []error
}

// Watcher imports created or modified pack files into a store. Invalid files
// are logged and skipped. Removed files leave their packs in the store.
type Watcher struct {
	config Config
	store  rulepack.Store
	logger *slog.Logger
	now    func() time.Time

	// OnSync, if set, is called after every import pass.
	OnSync func(SyncResult)

	fsw      *fsnotify.Watcher
	debounce *Debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a watcher over cfg.Dir.
func New(cfg Config, store rulepack.Store, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", cfg.Dir)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		config: cfg,
		store:  store,
		logger: logger.With("component", "rulepack.watch", "dir", cfg.Dir),
		now:    time.Now,
		fsw:    fsw,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.debounce = NewDebouncer(cfg.Debounce, func(paths []string) {
		w.importFiles(context.Background(), paths)
	})
	return w, nil
}

// Sync imports every pack file currently in the directory.
func (w *Watcher) Sync(ctx context.Context) SyncResult {
	packs, loadErr := rulepack.LoadDir(w.config.Dir)

	result := SyncResult{Imported: []string{}}
	if loadErr != nil {
		result.Errors = append(result.Errors, loadErr)
		w.logger.Warn("skipped invalid rule packs", "error", loadErr)
	}
	for _, p := range packs {
		if err := rulepack.Import(ctx, w.store, p, w.now()); err != nil {
			result.Errors = append(result.Errors, err)
			w.logger.Error("failed to import rule pack", "pack_id", p.ID, "error", err)
			continue
		}
		result.Imported = append(result.Imported, p.ID)
	}

	w.logger.Info("rule packs synced", "imported", len(result.Imported), "errors", len(result.Errors))
	w.notify(result)
	return result
}

// Watch runs an initial Sync and then imports changed files until ctx is
// cancelled or Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	select {
	case <-w.stopCh:
		w.mu.Unlock()
		return nil
	default:
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.fsw.Add(w.config.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.config.Dir, err)
	}
	w.Sync(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped by context")
			return ctx.Err()

		case <-w.stopCh:
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// Stop stops watching and releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	select {
	case <-w.stopCh:
		w.mu.Unlock()
		return nil
	default:
		close(w.stopCh)
	}
	w.mu.Unlock()

	w.debounce.Stop()
	if running {
		<-w.doneCh
	}
	return w.fsw.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !rulepack.IsPackFile(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.logger.Debug("rule pack file changed", "file", event.Name, "op", event.Op.String())
		w.debounce.Trigger(event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.logger.Info("rule pack file removed, stored pack kept", "file", event.Name)
	}
}

func (w *Watcher) importFiles(ctx context.Context, paths []string) {
	result := SyncResult{Imported: []string{}}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		p, err := rulepack.LoadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			w.logger.Warn("skipped invalid rule pack", "file", path, "error", err)
			continue
		}
		if err := rulepack.Import(ctx, w.store, p, w.now()); err != nil {
			result.Errors = append(result.Errors, err)
			w.logger.Error("failed to import rule pack", "file", path, "pack_id", p.ID, "error", err)
			continue
		}
		result.Imported = append(result.Imported, p.ID)
		w.logger.Info("rule pack imported", "file", path, "pack_id", p.ID, "version", p.Version)
	}
	w.notify(result)
}

func (w *Watcher) notify(result SyncResult) {
	if w.OnSync != nil {
		w.OnSync(result)
	}
}
