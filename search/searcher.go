package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/wayfind/core"
	"github.com/poiesic/wayfind/storage"
)

// Annotator enriches stored utilities with derived fields (report counts,
// status) before they are searched.
type Annotator interface {
	Annotate(ctx context.Context, utilities []core.Utility) ([]core.Utility, error)
}

// Searcher runs Search over the utilities held in a repository.
type Searcher struct {
	utilityRepository storage.UtilityRepository
	annotator         Annotator
	logger            *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithAnnotator applies an Annotator to the collection before every search.
func WithAnnotator(annotator Annotator) Option {
	return func(s *Searcher) error {
		s.annotator = annotator
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(utilityRepository storage.UtilityRepository, opts ...Option) (*Searcher, error) {
	if utilityRepository == nil {
		return nil, ErrUtilityRepositoryRequired
	}

	s := &Searcher{
		utilityRepository: utilityRepository,
		logger:            slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Find searches the stored collection.
// Returns up to maxHits results; maxHits <= 0 returns every match.
func (s *Searcher) Find(ctx context.Context, selected []string, query string, maxHits int) ([]core.SearchResult, error) {
	return s.FindWithMonitor(ctx, selected, query, maxHits, nil)
}

// FindWithMonitor searches the stored collection with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) FindWithMonitor(ctx context.Context, selected []string, query string, maxHits int, monitor SearchMonitor) ([]core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	utilities, err := s.utilityRepository.ListUtilities(ctx)
	if err != nil {
		s.logger.Error("error loading utilities", "err", err)
		return nil, err
	}

	if s.annotator != nil {
		utilities, err = s.annotator.Annotate(ctx, utilities)
		if err != nil {
			s.logger.Error("error annotating utilities", "err", err)
			return nil, err
		}
	}

	results := rank(utilities, selected, query, monitor)
	if maxHits > 0 && len(results) > maxHits {
		results = results[:maxHits]
	}

	s.logger.Debug("search complete",
		"query", query,
		"categories", selected,
		"collection", len(utilities),
		"hits", len(results))

	return results, nil
}
