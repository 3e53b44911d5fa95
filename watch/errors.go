package watch

import "errors"

// ErrImporterRequired is returned when no Importer is provided.
var ErrImporterRequired = errors.New("importer required")
