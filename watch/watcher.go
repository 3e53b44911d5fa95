// Package watch re-imports the seed file whenever it changes on disk.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/wayfind/ingestion"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Importer imports a seed file. *ingestion.Pipeline satisfies it.
type Importer interface {
	ImportCSVFile(ctx context.Context, path string, force bool) (*ingestion.ImportStats, error)
}

// SeedWatcher watches one seed file and imports it after every change.
type SeedWatcher struct {
	watcher  *fsnotify.Watcher
	importer Importer
	path     string
	debounce time.Duration
	logger   *slog.Logger
	imported chan *ingestion.ImportStats
}

// Option configures a SeedWatcher.
type Option func(*SeedWatcher)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *SeedWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets how long to wait after the last change before importing.
func WithDebounce(d time.Duration) Option {
	return func(w *SeedWatcher) {
		w.debounce = d
	}
}

// NewSeedWatcher creates a watcher for the seed file at path.
// The containing directory is watched so that editors replacing the file
// by rename are still noticed.
func NewSeedWatcher(importer Importer, path string, opts ...Option) (*SeedWatcher, error) {
	if importer == nil {
		return nil, ErrImporterRequired
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &SeedWatcher{
		watcher:  fw,
		importer: importer,
		path:     abs,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		imported: make(chan *ingestion.ImportStats, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Imported delivers the stats of each completed import. Stats are dropped
// when nobody is receiving.
func (w *SeedWatcher) Imported() <-chan *ingestion.ImportStats {
	return w.imported
}

// Run watches until ctx is canceled or the watcher is closed.
func (w *SeedWatcher) Run(ctx context.Context) error {
	w.logger.Info("watching seed file", "path", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("seed file changed", "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)

		case <-timer.C:
			w.importSeed(ctx)
		}
	}
}

func (w *SeedWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *SeedWatcher) importSeed(ctx context.Context) {
	stats, err := w.importer.ImportCSVFile(ctx, w.path, false)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.logger.Error("error importing seed file", "path", w.path, "err", err)
		return
	}
	if stats.UpToDate {
		w.logger.Debug("seed file content unchanged", "path", w.path)
	} else {
		w.logger.Info("seed file imported", "path", w.path, "written", stats.Written, "unchanged", stats.Unchanged)
	}

	select {
	case w.imported <- stats:
	default:
	}
}

// Close stops the underlying watcher.
func (w *SeedWatcher) Close() error {
	return w.watcher.Close()
}
