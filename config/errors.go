package config

import "errors"

// ErrInvalidConfig indicates a configuration value is malformed or out of range.
var ErrInvalidConfig = errors.New("invalid config")
