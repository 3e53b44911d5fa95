package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/wayfind/catalog"
	"github.com/poiesic/wayfind/core"
	"github.com/poiesic/wayfind/storage"
)

const (
	defaultBatchSize = 500

	// lastCheckedLayout is the day/month/year form used for LastChecked.
	lastCheckedLayout = "02/01/2006"
)

// ImportStats summarizes one import.
type ImportStats struct {
	Read      int  // Rows parsed from the source
	Written   int  // Utilities inserted or replaced
	Unchanged int  // Rows identical to the stored utility
	Skipped   int  // Rows filtered out: outside the bounds or duplicate stops
	Removed   int  // Utilities dropped from their seed file and deleted
	UpToDate  bool // The source matched its checkpoint and was not read
}

// Pipeline imports utilities from seed files and transit feeds.
type Pipeline struct {
	utilityRepository    storage.UtilityRepository
	checkpointRepository storage.CheckpointRepository
	pool                 *ants.Pool
	batchSize            int
	bounds               Bounds
	progress             io.Writer
	now                  func() time.Time
	logger               *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent feed parsing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithCheckpoints enables skipping seed files that have not changed since
// their last import.
func WithCheckpoints(repository storage.CheckpointRepository) Option {
	return func(p *Pipeline) error {
		p.checkpointRepository = repository
		return nil
	}
}

// WithBatchSize sets how many utilities are written per transaction.
// Default is 500.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithBounds sets the box GTFS stops must fall in.
// Default is CampusBounds.
func WithBounds(bounds Bounds) Option {
	return func(p *Pipeline) error {
		p.bounds = bounds
		return nil
	}
}

// WithProgress writes import progress to w (typically os.Stderr).
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithClock overrides the clock used to stamp imported stops.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(utilityRepository storage.UtilityRepository, opts ...Option) (*Pipeline, error) {
	if utilityRepository == nil {
		return nil, ErrRepositoryRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		utilityRepository: utilityRepository,
		pool:              pool,
		batchSize:         defaultBatchSize,
		bounds:            CampusBounds,
		now:               time.Now,
		logger:            slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// ImportCSV reads a seed file and stores its utilities.
// Rows identical to the stored utility are not rewritten. Utilities imported
// this way carry no Source and are never removed by a later import.
func (p *Pipeline) ImportCSV(ctx context.Context, r io.Reader) (*ImportStats, error) {
	return p.importCSV(ctx, r, "")
}

// ImportCSVFile imports the seed file at path. With checkpoints enabled, a
// file whose content matches its last import is skipped unless force is set.
//
// The file is authoritative for the utilities it supplied: each is stamped
// with the file's absolute path as its Source, and utilities an earlier import
// of the same file stored but the file no longer lists are deleted. Utilities
// from other sources, such as GTFS stops, are left alone.
func (p *Pipeline) ImportCSVFile(ctx context.Context, path string, force bool) (*ImportStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	source, err := filepath.Abs(path)
	if err != nil {
		source = path
	}
	fingerprint := core.FingerprintFromContent(string(data))

	if p.checkpointRepository != nil && !force {
		checkpoint, err := p.checkpointRepository.LoadCheckpoint(ctx, source)
		if err != nil {
			return nil, err
		}
		if checkpoint != nil && checkpoint.Fingerprint == fingerprint {
			p.logger.Debug("seed file unchanged", "path", source, "fingerprint", fingerprint)
			return &ImportStats{UpToDate: true}, nil
		}
	}

	stats, err := p.importCSV(ctx, bytes.NewReader(data), source)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", path, err)
	}

	if p.checkpointRepository != nil {
		checkpoint := &core.Checkpoint{
			Source:      source,
			Fingerprint: fingerprint,
			Rows:        stats.Read,
		}
		if err := p.checkpointRepository.SaveCheckpoint(ctx, checkpoint); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (p *Pipeline) importCSV(ctx context.Context, r io.Reader, source string) (*ImportStats, error) {
	utilities, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	for _, u := range utilities {
		u.Source = source
	}

	stats := &ImportStats{Read: len(utilities)}
	if err := p.store(ctx, "csv", utilities, stats); err != nil {
		return stats, err
	}
	if source != "" {
		if stats.Removed, err = p.prune(ctx, source, utilities); err != nil {
			return stats, err
		}
	}

	p.logger.Info("csv import complete",
		"read", stats.Read,
		"written", stats.Written,
		"unchanged", stats.Unchanged,
		"removed", stats.Removed)
	return stats, nil
}

// prune deletes the utilities last imported from source that listed does not contain.
func (p *Pipeline) prune(ctx context.Context, source string, listed []*core.Utility) (int, error) {
	keep := make(map[string]struct{}, len(listed))
	for _, u := range listed {
		keep[u.ID] = struct{}{}
	}

	stored, err := p.utilityRepository.ListUtilities(ctx)
	if err != nil {
		return 0, err
	}
	var stale []string
	for _, u := range stored {
		if u.Source != source {
			continue
		}
		if _, ok := keep[u.ID]; !ok {
			stale = append(stale, u.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := p.utilityRepository.DeleteUtilities(ctx, stale...); err != nil {
		return 0, err
	}
	p.logger.Info("removed utilities no longer in seed file", "path", source, "ids", stale)
	return len(stale), nil
}

// ExportCSV writes the stored collection as a seed file, in collection order.
// Returns the number of utilities written.
func (p *Pipeline) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	utilities, err := p.utilityRepository.ListUtilities(ctx)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(w, utilities); err != nil {
		return 0, err
	}
	return len(utilities), nil
}

// ImportGTFS turns the stops of a GTFS feed into bus utilities.
// Stops outside the pipeline bounds, and stops within DedupeTolerance of a
// stored or already imported bus utility, are skipped. New utilities get
// numeric IDs from the store; their Building lists the routes serving them.
func (p *Pipeline) ImportGTFS(ctx context.Context, fsys fs.FS) (*ImportStats, error) {
	var (
		routes map[string]string
		trips  map[string]string
		stops  []gtfsStop
	)

	// routes, trips and stops are independent; parse them concurrently
	err := p.parallel(
		func() (err error) {
			routes, err = parseRoutes(fsys)
			return err
		},
		func() (err error) {
			trips, err = parseTrips(fsys)
			return err
		},
		func() (err error) {
			stops, err = parseStops(fsys)
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("parsed feed", "routes", len(routes), "trips", len(trips), "stops", len(stops))

	stopRoutes, err := parseStopTimes(fsys, trips)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("parsed stop times", "stops", len(stopRoutes))

	existing, err := p.utilityRepository.ListUtilities(ctx)
	if err != nil {
		return nil, err
	}
	var known []core.Position
	for _, u := range existing {
		if u.Type == catalog.Bus {
			known = append(known, u.Position)
		}
	}

	stats := &ImportStats{Read: len(stops)}
	checked := p.now().Format(lastCheckedLayout)
	var accepted []*core.Utility
	for _, stop := range stops {
		if !p.bounds.Contains(stop.position) {
			stats.Skipped++
			continue
		}
		if isKnownStop(stop.position, known) {
			p.logger.Debug("skipping existing stop", "name", stop.name)
			stats.Skipped++
			continue
		}

		accepted = append(accepted, &core.Utility{
			Name:        stop.name,
			Type:        catalog.Bus,
			Building:    formatRoutes(stopRoutes[stop.id], routes),
			Position:    stop.position,
			Status:      core.StatusWorking,
			LastChecked: checked,
		})
		known = append(known, stop.position)
	}

	if err := p.store(ctx, "gtfs", accepted, stats); err != nil {
		return stats, err
	}

	p.logger.Info("gtfs import complete",
		"stops", stats.Read,
		"written", stats.Written,
		"skipped", stats.Skipped)
	return stats, nil
}

func isKnownStop(position core.Position, known []core.Position) bool {
	for _, k := range known {
		if near(position, k, DedupeTolerance) {
			return true
		}
	}
	return false
}

// parallel runs tasks on the worker pool and waits for all of them.
func (p *Pipeline) parallel(tasks ...func() error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	for _, task := range tasks {
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			record(task())
		}); err != nil {
			wg.Done()
			record(err)
		}
	}
	wg.Wait()

	return errors.Join(errs...)
}

// store writes utilities in batches, skipping those whose stored copy is identical.
func (p *Pipeline) store(ctx context.Context, label string, utilities []*core.Utility, stats *ImportStats) error {
	tracker := NewProgressTracker(p.progress, label, len(utilities), p.batchSize)
	tracker.Start()
	defer tracker.Finish()

	for start := 0; start < len(utilities); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := utilities[start:min(start+p.batchSize, len(utilities))]
		changed, err := p.changed(ctx, batch)
		if err != nil {
			return err
		}
		stats.Unchanged += len(batch) - len(changed)

		if len(changed) > 0 {
			if _, err := p.utilityRepository.PutUtilities(ctx, changed...); err != nil {
				return err
			}
			stats.Written += len(changed)
		}
		tracker.Increment(len(batch))
	}
	return nil
}

// changed filters out utilities whose stored copy has the same fingerprint,
// status and source.
func (p *Pipeline) changed(ctx context.Context, batch []*core.Utility) ([]*core.Utility, error) {
	var ids []string
	for _, u := range batch {
		if u.ID != "" {
			ids = append(ids, u.ID)
		}
	}
	if len(ids) == 0 {
		return batch, nil
	}

	stored, err := p.utilityRepository.GetUtilities(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*core.Utility, len(stored))
	for _, u := range stored {
		byID[u.ID] = u
	}

	changed := make([]*core.Utility, 0, len(batch))
	for _, u := range batch {
		old, ok := byID[u.ID]
		if ok && old.Fingerprint() == u.Fingerprint() && old.Status == u.Status && old.Source == u.Source {
			continue
		}
		changed = append(changed, u)
	}
	return changed, nil
}
