package storage

import (
	"context"

	"github.com/poiesic/wayfind/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// UtilityRepository provides operations for managing utilities.
type UtilityRepository interface {
	Repository

	// PutUtilities inserts or replaces utilities.
	// Utilities with an empty ID are assigned one from NextID.
	// New utilities are appended to the collection order; replaced
	// utilities keep their position.
	// Returns the utilities with IDs populated.
	PutUtilities(ctx context.Context, utilities ...*core.Utility) ([]*core.Utility, error)

	// DeleteUtilities removes utilities by ID.
	// Returns ErrNotFound if any utility doesn't exist.
	DeleteUtilities(ctx context.Context, ids ...string) error

	// GetUtility retrieves a single utility by ID.
	// Returns ErrNotFound if the utility doesn't exist.
	GetUtility(ctx context.Context, id string) (*core.Utility, error)

	// GetUtilities retrieves multiple utilities by ID.
	// Returns only the utilities that exist (no error for missing ones).
	GetUtilities(ctx context.Context, ids ...string) ([]*core.Utility, error)

	// ListUtilities returns the whole collection in insertion order.
	ListUtilities(ctx context.Context) ([]core.Utility, error)

	// CountUtilities returns the number of stored utilities.
	CountUtilities(ctx context.Context) (int, error)

	// NextID allocates a numeric ID not used by any stored utility.
	NextID(ctx context.Context) (string, error)
}

// ReportRepository provides operations for managing issue reports.
type ReportRepository interface {
	Repository

	// AddReports stores reports. Every report must carry an ID and UtilityID.
	// Sets CreatedAt if not already set.
	AddReports(ctx context.Context, reports ...*core.Report) ([]*core.Report, error)

	// GetReports returns the reports filed against a utility, oldest first.
	GetReports(ctx context.Context, utilityID string) ([]*core.Report, error)

	// CountReports returns the number of reports per utility ID.
	// Utilities without reports are absent from the map.
	CountReports(ctx context.Context) (map[string]int, error)

	// DeleteReports removes every report filed against a utility.
	DeleteReports(ctx context.Context, utilityID string) error
}

// CheckpointRepository persists import checkpoints.
type CheckpointRepository interface {
	// SaveCheckpoint stores the checkpoint for its source, replacing any previous one.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for a source.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, source string) (*core.Checkpoint, error)

	// DeleteCheckpoint forgets the checkpoint for a source, forcing the next import.
	DeleteCheckpoint(ctx context.Context, source string) error
}
