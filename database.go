// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wayfind

import (
	"log/slog"

	"github.com/poiesic/wayfind/ingestion"
	"github.com/poiesic/wayfind/reporting"
	"github.com/poiesic/wayfind/search"
	"github.com/poiesic/wayfind/storage"
	"github.com/poiesic/wayfind/storage/badger"
)

// Database wires the store to the search, ingestion and report services.
type Database struct {
	backend        *badger.Backend
	utilityRepo    storage.UtilityRepository
	reportRepo     storage.ReportRepository
	checkpointRepo storage.CheckpointRepository
	reports        *reporting.Service
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	inMemory      bool
	logger        *slog.Logger
	reportOptions []reporting.Option
}

// WithInMemory keeps everything in memory; the path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to the store and services.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReportOptions configures the report service.
func WithReportOptions(opts ...reporting.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.reportOptions = append(o.reportOptions, opts...)
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory, badger.WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	// Create utility repository
	utilityRepo, err := badger.NewUtilityRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create report repository
	reportRepo, err := badger.NewReportRepository(backend)
	if err != nil {
		utilityRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create checkpoint repository
	checkpointRepo := badger.NewCheckpointRepository(backend)

	reportOptions := append([]reporting.Option{reporting.WithLogger(options.logger)}, options.reportOptions...)
	reports, err := reporting.NewService(utilityRepo, reportRepo, reportOptions...)
	if err != nil {
		reportRepo.Close()
		utilityRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:        backend,
		utilityRepo:    utilityRepo,
		reportRepo:     reportRepo,
		checkpointRepo: checkpointRepo,
		reports:        reports,
		logger:         options.logger,
	}, nil
}

func (db *Database) Close() error {
	// Close repositories
	if err := db.reportRepo.Close(); err != nil {
		db.logger.Error("error closing report repository", "err", err)
		return err
	}
	if err := db.utilityRepo.Close(); err != nil {
		db.logger.Error("error closing utility repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) UtilityRepository() storage.UtilityRepository {
	return db.utilityRepo
}

func (db *Database) ReportRepository() storage.ReportRepository {
	return db.reportRepo
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpointRepo
}

// Reports returns the report service shared by every searcher of this database.
func (db *Database) Reports() *reporting.Service {
	return db.reports
}

// NewIngestionPipeline creates a pipeline that records seed file checkpoints.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	defaults := []ingestion.Option{
		ingestion.WithLogger(db.logger),
		ingestion.WithCheckpoints(db.checkpointRepo),
	}
	return ingestion.NewPipeline(db.utilityRepo, append(defaults, opts...)...)
}

// NewSearcher creates a searcher that sees filed reports.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	defaults := []search.Option{
		search.WithLogger(db.logger),
		search.WithAnnotator(db.reports),
	}
	return search.NewSearcher(db.utilityRepo, append(defaults, opts...)...)
}
