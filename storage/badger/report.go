package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wayfind/core"
	"github.com/poiesic/wayfind/storage"
)

// ReportRepository implements storage.ReportRepository for BadgerDB.
// Reports are keyed by utility and creation time, so a utility's reports
// are read back oldest first with a single prefix scan.
type ReportRepository struct {
	backend *Backend
}

var _ storage.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(backend *Backend) (*ReportRepository, error) {
	return &ReportRepository{
		backend: backend,
	}, nil
}

// Close releases resources. ReportRepository has no resources to release.
func (r *ReportRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ReportRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddReports stores one or more reports.
func (r *ReportRepository) AddReports(ctx context.Context, reports ...*core.Report) ([]*core.Report, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, report := range reports {
			if report.ID == "" || report.UtilityID == "" {
				return fmt.Errorf("%w: report for utility %q", storage.ErrMissingID, report.UtilityID)
			}
			if report.CreatedAt.IsZero() {
				report.CreatedAt = time.Now().UTC()
			}
			// Stored timestamps have microsecond precision
			report.CreatedAt = report.CreatedAt.Truncate(time.Microsecond)

			key := makeReportKey(report.UtilityID, report.CreatedAt, report.ID)
			if err := tx.Set(key, storage.MarshalReport(report)); err != nil {
				return err
			}
		}
		return commit(tx)
	}, true)

	return reports, err
}

// GetReports returns the reports filed against a utility, oldest first.
func (r *ReportRepository) GetReports(ctx context.Context, utilityID string) ([]*core.Report, error) {
	results := []*core.Report{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialReportKey(utilityID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var report *core.Report
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				report, err = storage.UnmarshalReport(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, report)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountReports returns the number of reports per utility ID.
func (r *ReportRepository) CountReports(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(reportRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			utilityID, ok := utilityIDFromReportKey(iter.Item().Key())
			if !ok {
				continue
			}
			counts[utilityID]++
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// DeleteReports removes every report filed against a utility.
func (r *ReportRepository) DeleteReports(ctx context.Context, utilityID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialReportKey(utilityID)
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
