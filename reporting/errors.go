package reporting

import "errors"

var (
	// ErrRepositoryRequired is returned when a utility or report repository is not provided.
	ErrRepositoryRequired = errors.New("repository required")

	// ErrUnknownUtility is returned when a report targets a utility that does not exist.
	ErrUnknownUtility = errors.New("unknown utility")

	// ErrNoteTooLong is returned when a report note exceeds MaxNoteLength.
	ErrNoteTooLong = errors.New("report note too long")

	// ErrInvalidMaxAttempts is returned when the retry attempt count is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrInvalidThreshold is returned when the status threshold is not positive.
	ErrInvalidThreshold = errors.New("report threshold must be greater than 0")
)
