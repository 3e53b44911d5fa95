package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/poiesic/wayfind/core"
	"github.com/poiesic/wayfind/storage"
)

const (
	// MaxNoteLength is the longest report note accepted, in characters.
	MaxNoteLength = 500

	defaultMaxAttempts = 5
	defaultBaseDelay   = 10 * time.Millisecond
)

// Service files issue reports and folds report counts into utilities.
// It is safe for concurrent use.
type Service struct {
	utilityRepository storage.UtilityRepository
	reportRepository  storage.ReportRepository
	publisher         Publisher
	threshold         int
	maxAttempts       int
	baseDelay         time.Duration
	now               func() time.Time
	logger            *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPublisher announces every accepted report through publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) error {
		s.publisher = publisher
		return nil
	}
}

// WithThreshold sets how many reports flag a working utility as reported.
// Default is DefaultThreshold.
func WithThreshold(threshold int) Option {
	return func(s *Service) error {
		if threshold < 1 {
			return ErrInvalidThreshold
		}
		s.threshold = threshold
		return nil
	}
}

// WithRetry sets how report writes are retried on storage conflicts.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *Service) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		s.maxAttempts = maxAttempts
		s.baseDelay = baseDelay
		return nil
	}
}

// WithClock overrides the clock used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// NewService creates a new report service.
func NewService(utilityRepository storage.UtilityRepository, reportRepository storage.ReportRepository, opts ...Option) (*Service, error) {
	if utilityRepository == nil || reportRepository == nil {
		return nil, ErrRepositoryRequired
	}

	s := &Service{
		utilityRepository: utilityRepository,
		reportRepository:  reportRepository,
		threshold:         DefaultThreshold,
		maxAttempts:       defaultMaxAttempts,
		baseDelay:         defaultBaseDelay,
		now:               time.Now,
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Threshold returns the report count that flags a working utility.
func (s *Service) Threshold() int {
	return s.threshold
}

// Submit files a report against a utility.
// Returns ErrUnknownUtility if the utility does not exist.
func (s *Service) Submit(ctx context.Context, utilityID, note string) (*core.Report, error) {
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return nil, fmt.Errorf("%w: %w: %d characters", core.ErrInvalidReport, ErrNoteTooLong, utf8.RuneCountInString(note))
	}

	utility, err := s.lookup(ctx, utilityID)
	if err != nil {
		return nil, err
	}

	report := &core.Report{
		ID:        uuid.NewString(),
		UtilityID: utility.ID,
		Note:      note,
		CreatedAt: s.now().UTC(),
	}
	if err := core.ValidateReport(report); err != nil {
		return nil, err
	}

	err = RetryWithBackoff(ctx, func() error {
		_, err := s.reportRepository.AddReports(ctx, report)
		if err != nil && !errors.Is(err, storage.ErrConflict) {
			return Permanent(err)
		}
		return err
	}, s.maxAttempts, s.baseDelay)
	if err != nil {
		s.logger.Error("error storing report", "utility", utility.ID, "err", err)
		return nil, err
	}

	s.logger.Info("report filed", "utility", utility.ID, "report", report.ID)

	if s.publisher != nil {
		s.publish(ctx, utility, report)
	}
	return report, nil
}

// publish announces report. Failures are logged; the report is already stored.
func (s *Service) publish(ctx context.Context, utility *core.Utility, report *core.Report) {
	reports, err := s.reportRepository.GetReports(ctx, utility.ID)
	if err != nil {
		s.logger.Error("error counting reports", "utility", utility.ID, "err", err)
		return
	}
	total := utility.Reports + len(reports)
	event := Event{
		Report:  *report,
		Reports: total,
		Status:  DeriveStatus(utility.Status, total, s.threshold),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("error publishing report", "report", report.ID, "err", err)
	}
}

// Reports returns the reports filed against a utility, oldest first.
// Returns ErrUnknownUtility if the utility does not exist.
func (s *Service) Reports(ctx context.Context, utilityID string) ([]*core.Report, error) {
	if _, err := s.lookup(ctx, utilityID); err != nil {
		return nil, err
	}
	return s.reportRepository.GetReports(ctx, utilityID)
}

// Resolve clears the reports filed against a utility.
func (s *Service) Resolve(ctx context.Context, utilityID string) error {
	if _, err := s.lookup(ctx, utilityID); err != nil {
		return err
	}
	if err := s.reportRepository.DeleteReports(ctx, utilityID); err != nil {
		return err
	}
	s.logger.Info("reports resolved", "utility", utilityID)
	return nil
}

// Annotate returns copies of utilities with filed reports added to Reports
// and Status derived from the total. The input is not modified.
func (s *Service) Annotate(ctx context.Context, utilities []core.Utility) ([]core.Utility, error) {
	counts, err := s.reportRepository.CountReports(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.Utility, len(utilities))
	for i, u := range utilities {
		out[i] = s.annotate(u, counts[u.ID])
	}
	return out, nil
}

// Utility returns one utility with its reports applied.
// Returns ErrUnknownUtility if the utility does not exist.
func (s *Service) Utility(ctx context.Context, utilityID string) (*core.Utility, error) {
	utility, err := s.lookup(ctx, utilityID)
	if err != nil {
		return nil, err
	}
	reports, err := s.reportRepository.GetReports(ctx, utilityID)
	if err != nil {
		return nil, err
	}
	annotated := s.annotate(*utility, len(reports))
	return &annotated, nil
}

func (s *Service) annotate(u core.Utility, filed int) core.Utility {
	u.Reports += filed
	u.Status = DeriveStatus(u.Status, u.Reports, s.threshold)
	return u
}

func (s *Service) lookup(ctx context.Context, utilityID string) (*core.Utility, error) {
	if utilityID == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnknownUtility, core.ErrEmptyID)
	}
	utility, err := s.utilityRepository.GetUtility(ctx, utilityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUtility, utilityID)
		}
		return nil, err
	}
	return utility, nil
}
