package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/wayfind"
	"github.com/poiesic/wayfind/config"
	"github.com/poiesic/wayfind/ingestion"
	"github.com/poiesic/wayfind/reporting"
	"github.com/poiesic/wayfind/search"
	"github.com/poiesic/wayfind/server"
	"github.com/poiesic/wayfind/watch"
	"github.com/urfave/cli/v2"
)

//go:embed sample.csv
var sampleSeed []byte

func openDatabase(cfg config.Config, reportOptions ...reporting.Option) (*wayfind.Database, error) {
	opts := []wayfind.DatabaseOption{
		wayfind.WithReportOptions(append([]reporting.Option{reporting.WithThreshold(cfg.Reports.Threshold)}, reportOptions...)...),
	}
	if cfg.Database.InMemory {
		opts = append(opts, wayfind.WithInMemory())
	}
	db, err := wayfind.NewDatabase(cfg.Database.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func bounds(cfg config.Config) ingestion.Bounds {
	return ingestion.Bounds(cfg.GTFS)
}

func serveCommand(c *cli.Context) error {
	cfg := configFrom(c)
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("seed") {
		cfg.Seed.Path = c.String("seed")
	}
	if c.IsSet("watch") {
		cfg.Seed.Watch = c.Bool("watch")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reportOptions []reporting.Option
	if cfg.NATS.URL != "" {
		nc, err := reporting.ConnectNATS(reporting.NATSOptions{
			URL:            cfg.NATS.URL,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectTimeout: cfg.NATS.ConnectTimeout,
		}, slog.Default())
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				slog.Warn("error draining nats connection", "err", err)
			}
		}()
		reportOptions = append(reportOptions, reporting.WithPublisher(reporting.NewNATSPublisher(nc, cfg.NATS.Subject)))
	}

	db, err := openDatabase(cfg, reportOptions...)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline(ingestion.WithBounds(bounds(cfg)))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	if cfg.Seed.Path != "" {
		if _, err := pipeline.ImportCSVFile(ctx, cfg.Seed.Path, false); err != nil {
			return fmt.Errorf("seed import failed: %w", err)
		}
		if cfg.Seed.Watch {
			watcher, err := watch.NewSeedWatcher(pipeline, cfg.Seed.Path)
			if err != nil {
				return err
			}
			defer watcher.Close()
			// Deferred after pipeline.Release and db.Close, so it runs before them.
			defer watchSeed(ctx, watcher)()
		}
	}

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg.Server, searcher, db.Reports())
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watchSeed runs w in the background. The returned function stops it and
// waits for an import in flight, and must be called before the pipeline it
// imports through is released.
func watchSeed(ctx context.Context, w *watch.SeedWatcher) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("seed watcher stopped", "err", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func searchCommand(c *cli.Context) error {
	db, err := openDatabase(configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	var monitor search.SearchMonitor
	if c.Bool("trace") {
		monitor = search.NewLogMonitor(slog.New(slog.NewTextHandler(c.App.ErrWriter, nil)), slog.LevelInfo)
	}

	query := strings.Join(c.Args().Slice(), " ")
	results, err := searcher.FindWithMonitor(c.Context, c.StringSlice("category"), query, c.Int("limit"), monitor)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d hits\n", len(results))
	for i, hit := range results {
		u := hit.Utility
		location := u.Building
		if u.Floor != "" {
			location += ", floor " + u.Floor
		}
		if c.Bool("scores") {
			fmt.Fprintf(w, "%d: %s [%s] %s (%s) id=%s score=%d\n", i, u.Name, u.Type, location, u.Status, u.ID, hit.Score)
		} else {
			fmt.Fprintf(w, "%d: %s [%s] %s (%s) id=%s\n", i, u.Name, u.Type, location, u.Status, u.ID)
		}
	}
	return nil
}

func importCSVCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("seed file path is required")
	}

	db, err := openDatabase(configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline(ingestion.WithProgress(c.App.ErrWriter))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	stats, err := pipeline.ImportCSVFile(c.Context, path, c.Bool("force"))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	printStats(c, path, stats)
	return nil
}

func exportCSVCommand(c *cli.Context) error {
	db, err := openDatabase(configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	w := c.App.Writer
	if out := c.String("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := pipeline.ExportCSV(c.Context, w)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	slog.Info("exported utilities", "count", n)
	return nil
}

func importGTFSCommand(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return fmt.Errorf("feed directory is required")
	}
	cfg := configFrom(c)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []ingestion.Option{ingestion.WithBounds(bounds(cfg))}
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}
	pipeline, err := db.NewIngestionPipeline(opts...)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	stats, err := pipeline.ImportGTFS(c.Context, os.DirFS(dir))
	if err != nil {
		return fmt.Errorf("gtfs import failed: %w", err)
	}
	printStats(c, dir, stats)
	return nil
}

func seedCommand(c *cli.Context) error {
	db, err := openDatabase(configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	var stats *ingestion.ImportStats
	source := "built-in sample"
	if src := c.String("src"); src != "" {
		source = src
		stats, err = pipeline.ImportCSVFile(c.Context, src, true)
	} else {
		stats, err = pipeline.ImportCSV(c.Context, bytes.NewReader(sampleSeed))
	}
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	printStats(c, source, stats)
	return nil
}

func reportAddCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("utility id is required")
	}

	db, err := openDatabase(configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := db.Reports().Submit(c.Context, id, strings.Join(c.Args().Tail(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Filed report %s against utility %s\n", report.ID, report.UtilityID)
	return nil
}

func reportListCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("utility id is required")
	}

	db, err := openDatabase(configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	utility, err := db.Reports().Utility(c.Context, id)
	if err != nil {
		return err
	}
	reports, err := db.Reports().Reports(c.Context, id)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s: %d reports (%s)\n", utility.Name, utility.Reports, utility.Status)
	for _, r := range reports {
		fmt.Fprintf(w, "%s  %s  %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.Note)
	}
	return nil
}

func reportResolveCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("utility id is required")
	}

	db, err := openDatabase(configFrom(c))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Reports().Resolve(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Resolved reports for utility %s\n", id)
	return nil
}

func printStats(c *cli.Context, source string, stats *ingestion.ImportStats) {
	if stats.UpToDate {
		fmt.Fprintf(c.App.Writer, "%s: unchanged since last import\n", source)
		return
	}
	fmt.Fprintf(c.App.Writer, "%s: read %d, written %d, unchanged %d, skipped %d, removed %d\n",
		source, stats.Read, stats.Written, stats.Unchanged, stats.Skipped, stats.Removed)
}
