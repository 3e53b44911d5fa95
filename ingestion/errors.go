package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when a utility repository is not provided.
	ErrRepositoryRequired = errors.New("utility repository required")

	// ErrMalformedRow is returned when a CSV or GTFS row cannot be parsed.
	ErrMalformedRow = errors.New("malformed row")

	// ErrMissingColumn is returned when a CSV header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrMissingFeedFile is returned when a GTFS feed lacks one of its required files.
	ErrMissingFeedFile = errors.New("missing GTFS feed file")
)
