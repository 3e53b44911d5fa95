package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/wayfind/ingestion"
	"github.com/poiesic/wayfind/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingImporter struct {
	mu    sync.Mutex
	paths []string
}

func (i *countingImporter) ImportCSVFile(ctx context.Context, path string, force bool) (*ingestion.ImportStats, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.paths = append(i.paths, path)
	return &ingestion.ImportStats{Read: 1, Written: 1}, nil
}

func (i *countingImporter) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.paths)
}

func startWatcher(t *testing.T, importer Importer, path string) *SeedWatcher {
	t.Helper()
	w, err := NewSeedWatcher(importer, path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return w
}

func waitImported(t *testing.T, w *SeedWatcher) *ingestion.ImportStats {
	t.Helper()
	select {
	case stats := <-w.Imported():
		return stats
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for import")
		return nil
	}
}

func TestNewSeedWatcher(t *testing.T) {
	_, err := NewSeedWatcher(nil, "seed.csv")
	assert.ErrorIs(t, err, ErrImporterRequired)

	_, err = NewSeedWatcher(&countingImporter{}, filepath.Join(t.TempDir(), "missing", "seed.csv"))
	assert.Error(t, err, "directory must exist")
}

func TestSeedWatcher_ImportsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.csv")
	require.NoError(t, os.WriteFile(path, []byte("initial"), 0o644))

	importer := &countingImporter{}
	w := startWatcher(t, importer, path)

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))
	stats := waitImported(t, w)
	assert.Equal(t, 1, stats.Written)
	assert.GreaterOrEqual(t, importer.count(), 1)
	assert.Equal(t, w.path, importer.paths[0])
}

func TestSeedWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.csv")
	require.NoError(t, os.WriteFile(path, []byte("initial"), 0o644))

	importer := &countingImporter{}
	w := startWatcher(t, importer, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0o644))

	select {
	case <-w.Imported():
		t.Error("should not import for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 0, importer.count())
}

func TestSeedWatcher_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.csv")
	w, err := NewSeedWatcher(&countingImporter{}, path)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestSeedWatcher_Pipeline(t *testing.T) {
	utilityRepo, reportRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		reportRepo.Close()
		utilityRepo.Close()
		backend.Close()
	}()

	pipeline, err := ingestion.NewPipeline(utilityRepo, ingestion.WithCheckpoints(badger.NewCheckpointRepository(backend)))
	require.NoError(t, err)
	defer pipeline.Release()

	path := filepath.Join(t.TempDir(), "seed.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name,Type,Building,Floor,Id,Latitude,Longitude\n"), 0o644))
	w := startWatcher(t, pipeline, path)

	seed := "Name,Type,Building,Floor,Id,Latitude,Longitude\n" +
		"Water Fountain,water,Nest,1,1,49.2667,-123.2500\n" +
		"Bike Rack,bike,Life,,2,49.2675,-123.2496\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	stats := waitImported(t, w)
	assert.Equal(t, 2, stats.Written)

	count, err := utilityRepo.CountUtilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// dropping a row from the file removes the utility
	require.NoError(t, os.WriteFile(path, []byte(seed[:strings.LastIndex(seed, "Bike Rack")]), 0o644))
	require.Eventually(t, func() bool {
		count, err := utilityRepo.CountUtilities(context.Background())
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)
}
