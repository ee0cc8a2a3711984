package config

import (
	"errors"
)

// Sentinel kinds for configuration failures, matchable with errors.Is.
var (
	// ErrInvalidConfig marks a loaded configuration that failed
	// validation (empty addr, non-positive sizes, out-of-range ratios).
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig marks a failure reading or parsing a config source.
	ErrLoadConfig = errors.New("load config failed")
)
