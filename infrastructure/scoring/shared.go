// Package scoring implements the pure evaluation engine: weighted score
// aggregation, stable bid ranking and the automatic shortlist rule.
// Nothing in this package performs I/O.
package scoring

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Score bounds of a single criterion score and of the shortlist threshold.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Common errors returned by scoring components.
var (
	// ErrNilAggregator is returned when a ranker is built without an aggregator.
	ErrNilAggregator = errors.New("aggregator cannot be nil")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()
