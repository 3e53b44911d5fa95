package server

import "errors"

// ErrServiceRequired is returned when the server is built without a Finder or Reporter.
var ErrServiceRequired = errors.New("search and report services required")
