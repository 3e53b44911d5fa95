package ingestion

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/wayfind/core"
	"github.com/poiesic/wayfind/storage"
	"github.com/poiesic/wayfind/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStore struct {
	utilities   storage.UtilityRepository
	checkpoints storage.CheckpointRepository
}

func newTestStore(t *testing.T) testStore {
	t.Helper()
	utilityRepo, reportRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		reportRepo.Close()
		utilityRepo.Close()
		backend.Close()
	})
	return testStore{
		utilities:   utilityRepo,
		checkpoints: badger.NewCheckpointRepository(backend),
	}
}

func newTestPipeline(t *testing.T, store testStore, opts ...Option) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(store.utilities, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)
	return pipeline
}

func TestNewPipeline(t *testing.T) {
	t.Run("requires repository", func(t *testing.T) {
		_, err := NewPipeline(nil)
		assert.ErrorIs(t, err, ErrRepositoryRequired)
	})

	t.Run("applies options", func(t *testing.T) {
		store := newTestStore(t)
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		pipeline := newTestPipeline(t, store,
			WithPoolSize(0),
			WithBatchSize(0),
			WithLogger(logger),
			WithBounds(Bounds{North: 1, South: -1, East: 1, West: -1}),
		)
		assert.Equal(t, 1, pipeline.pool.Cap())
		assert.Equal(t, 1, pipeline.batchSize)
		assert.Same(t, logger, pipeline.logger)
		assert.Equal(t, 1.0, pipeline.bounds.North)
	})
}

func TestImportCSV(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store, WithBatchSize(2))
	ctx := context.Background()

	stats, err := pipeline.ImportCSV(ctx, strings.NewReader(seedCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Read)
	assert.Equal(t, 3, stats.Written)
	assert.Zero(t, stats.Unchanged)

	list, err := store.utilities.ListUtilities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{list[0].ID, list[1].ID, list[2].ID})

	t.Run("unchanged rows are skipped", func(t *testing.T) {
		stats, err := pipeline.ImportCSV(ctx, strings.NewReader(seedCSV))
		require.NoError(t, err)
		assert.Zero(t, stats.Written)
		assert.Equal(t, 3, stats.Unchanged)
	})

	t.Run("edited rows are rewritten", func(t *testing.T) {
		edited := strings.Replace(seedCSV, `"Microwave","microwave","Life"`, `"Microwave","microwave","Life Building"`, 1)
		stats, err := pipeline.ImportCSV(ctx, strings.NewReader(edited))
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Written)
		assert.Equal(t, 2, stats.Unchanged)

		u, err := store.utilities.GetUtility(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, "Life Building", u.Building)

		// Order is unchanged by the update
		list, err := store.utilities.ListUtilities(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2", list[1].ID)
	})

	t.Run("malformed file stores nothing", func(t *testing.T) {
		_, err := pipeline.ImportCSV(ctx, strings.NewReader("Name,Type\nA,water\n"))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})
}

func TestImportCSV_ContextCanceled(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.ImportCSV(ctx, strings.NewReader(seedCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportCSVFile_Checkpoints(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store, WithCheckpoints(store.checkpoints))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "utilities.csv")
	require.NoError(t, os.WriteFile(path, []byte(seedCSV), 0644))

	stats, err := pipeline.ImportCSVFile(ctx, path, false)
	require.NoError(t, err)
	assert.False(t, stats.UpToDate)
	assert.Equal(t, 3, stats.Written)

	stats, err = pipeline.ImportCSVFile(ctx, path, false)
	require.NoError(t, err)
	assert.True(t, stats.UpToDate)
	assert.Zero(t, stats.Read)

	// force reads the file again, but the rows are unchanged
	stats, err = pipeline.ImportCSVFile(ctx, path, true)
	require.NoError(t, err)
	assert.False(t, stats.UpToDate)
	assert.Equal(t, 3, stats.Unchanged)

	// a changed file is imported again
	extra := seedCSV + "\"Bike Rack\",\"bike\",\"Nest\",\"\",\"4\",49.2667,-123.2499\n"
	require.NoError(t, os.WriteFile(path, []byte(extra), 0644))
	stats, err = pipeline.ImportCSVFile(ctx, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)

	count, err := store.utilities.CountUtilities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestImportCSVFile_RemovesDroppedRows(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store)
	ctx := context.Background()
	dir := t.TempDir()

	header := "Name,Type,Building,Floor,Id,Latitude,Longitude\n"
	fountain := "Water Fountain,water,Nest,1,1,49.2667,-123.2500\n"
	filter := "Water Filter,water,Life,2,2,49.2675,-123.2496\n"

	seedPath := filepath.Join(dir, "utilities.csv")
	require.NoError(t, os.WriteFile(seedPath, []byte(header+fountain+filter), 0644))
	otherPath := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(otherPath, []byte(header+"Microwave,microwave,Life,Basement,7,49.2675,-123.2496\n"), 0644))

	_, err := pipeline.ImportCSVFile(ctx, seedPath, false)
	require.NoError(t, err)
	_, err = pipeline.ImportCSVFile(ctx, otherPath, false)
	require.NoError(t, err)
	_, err = pipeline.ImportCSV(ctx, strings.NewReader(header+"Bike Rack,bike,Nest,,9,49.2667,-123.2499\n"))
	require.NoError(t, err)
	_, err = store.utilities.PutUtilities(ctx, &core.Utility{Name: "UBC Exchange", Type: "bus", Building: "Route 99", Status: core.StatusWorking})
	require.NoError(t, err)

	stored, err := store.utilities.GetUtility(ctx, "1")
	require.NoError(t, err)
	abs, err := filepath.Abs(seedPath)
	require.NoError(t, err)
	assert.Equal(t, abs, stored.Source)

	// the filter is dropped from the seed file
	require.NoError(t, os.WriteFile(seedPath, []byte(header+fountain), 0644))
	stats, err := pipeline.ImportCSVFile(ctx, seedPath, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Read)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 1, stats.Removed)

	_, err = store.utilities.GetUtility(ctx, "2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// utilities from other sources survive
	list, err := store.utilities.ListUtilities(ctx)
	require.NoError(t, err)
	var names []string
	for _, u := range list {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Water Fountain", "Microwave", "Bike Rack", "UBC Exchange"}, names)
}

func TestImportCSV_KeepsUnlistedRows(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store)
	ctx := context.Background()

	_, err := pipeline.ImportCSV(ctx, strings.NewReader(seedCSV))
	require.NoError(t, err)

	stats, err := pipeline.ImportCSV(ctx, strings.NewReader("Name,Type,Building,Floor,Id,Latitude,Longitude\n"))
	require.NoError(t, err)
	assert.Zero(t, stats.Removed)

	count, err := store.utilities.CountUtilities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestImportCSVFile_Missing(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store)

	_, err := pipeline.ImportCSVFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportCSV(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store)
	ctx := context.Background()

	_, err := pipeline.ImportCSV(ctx, strings.NewReader(seedCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := pipeline.ExportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Export then import into a fresh store reproduces the collection
	other := newTestStore(t)
	otherPipeline := newTestPipeline(t, other)
	_, err = otherPipeline.ImportCSV(ctx, &buf)
	require.NoError(t, err)

	want, err := store.utilities.ListUtilities(ctx)
	require.NoError(t, err)
	got, err := other.utilities.ListUtilities(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImportGTFS(t *testing.T) {
	store := newTestStore(t)
	checked := time.Date(2026, 1, 21, 9, 0, 0, 0, time.UTC)
	pipeline := newTestPipeline(t, store,
		WithPoolSize(2),
		WithClock(func() time.Time { return checked }))
	ctx := context.Background()

	// Seeded collection uses low numeric IDs
	_, err := pipeline.ImportCSV(ctx, strings.NewReader(seedCSV))
	require.NoError(t, err)

	stats, err := pipeline.ImportGTFS(ctx, testFeed())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Read)
	assert.Equal(t, 3, stats.Written)
	assert.Equal(t, 2, stats.Skipped, "one stop outside bounds, one duplicate")

	list, err := store.utilities.ListUtilities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 6)

	stops := list[3:]
	assert.Equal(t, "UBC Exchange @ Bay 12", stops[0].Name)
	assert.Equal(t, "Routes 4, 14, 99", stops[0].Building)
	assert.Equal(t, "Wesbrook Mall @ 16th, EB", stops[1].Name)
	assert.Equal(t, "Route 99", stops[1].Building)
	assert.Equal(t, "Thunderbird Blvd", stops[2].Name)
	assert.Equal(t, "", stops[2].Building)

	seen := map[string]bool{"1": true, "2": true, "3": true}
	for _, stop := range stops {
		assert.Equal(t, "bus", stop.Type)
		assert.Equal(t, core.StatusWorking, stop.Status)
		assert.Equal(t, "21/01/2026", stop.LastChecked)
		assert.Empty(t, stop.Floor)

		n, err := strconv.Atoi(stop.ID)
		require.NoError(t, err)
		assert.Greater(t, n, 3)
		assert.False(t, seen[stop.ID], "duplicate id %s", stop.ID)
		seen[stop.ID] = true
	}

	t.Run("reimport skips known stops", func(t *testing.T) {
		stats, err := pipeline.ImportGTFS(ctx, testFeed())
		require.NoError(t, err)
		assert.Zero(t, stats.Written)
		assert.Equal(t, 5, stats.Skipped)
	})
}

func TestImportGTFS_SkipsStoredBusStops(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store)
	ctx := context.Background()

	_, err := store.utilities.PutUtilities(ctx, &core.Utility{
		ID:       "274",
		Name:     "UBC Exchange @ Bay 1",
		Type:     "bus",
		Position: core.Position{Lat: 49.26603, Lng: -123.24603},
	})
	require.NoError(t, err)

	stats, err := pipeline.ImportGTFS(ctx, testFeed())
	require.NoError(t, err)
	// S1 and its duplicate S5 are near the stored stop
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 3, stats.Skipped)
}

func TestImportGTFS_MissingFile(t *testing.T) {
	store := newTestStore(t)
	pipeline := newTestPipeline(t, store)

	feed := testFeed()
	delete(feed, "trips.txt")

	_, err := pipeline.ImportGTFS(context.Background(), feed)
	assert.ErrorIs(t, err, ErrMissingFeedFile)
}

func TestImportGTFS_Progress(t *testing.T) {
	store := newTestStore(t)
	var buf bytes.Buffer
	pipeline := newTestPipeline(t, store, WithProgress(&buf), WithBatchSize(1))

	_, err := pipeline.ImportGTFS(context.Background(), testFeed())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "gtfs: 3/3")
}
