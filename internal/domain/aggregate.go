package domain

import (
	"fmt"
	"math"
)

// rangeTolerance absorbs floating point drift at the edges of the score range.
const rangeTolerance = 1e-9

// ScoreRange is the closed interval of accepted score values.
type ScoreRange struct {
	Min float64
	Max float64
}

// DefaultScoreRange matches the 0-5 star scale.
var DefaultScoreRange = ScoreRange{Min: 0, Max: 5}

// Contains reports whether v is a finite value inside the range.
func (r ScoreRange) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= r.Min && v <= r.Max
}

// Settle checks a computed aggregate against the range. Values within
// rangeTolerance of a bound are snapped to it; anything further out is an
// invariant violation.
func (r ScoreRange) Settle(aggregate float64) (float64, error) {
	switch {
	case math.IsNaN(aggregate) || math.IsInf(aggregate, 0):
		return 0, fmt.Errorf("%w: aggregate %v is not finite", ErrInvariantViolation, aggregate)
	case aggregate < r.Min-rangeTolerance || aggregate > r.Max+rangeTolerance:
		return 0, fmt.Errorf("%w: aggregate %v outside [%v, %v]", ErrInvariantViolation, aggregate, r.Min, r.Max)
	case aggregate < r.Min:
		return r.Min, nil
	case aggregate > r.Max:
		return r.Max, nil
	}
	return aggregate, nil
}

// AddScore folds the first score of a new scorer into the aggregate.
func AddScore(aggregate float64, count int64, value float64) (float64, int64, error) {
	if count < 0 {
		return 0, 0, fmt.Errorf("%w: negative score count %d", ErrInvariantViolation, count)
	}
	if count == 0 {
		aggregate = 0
	}
	next := count + 1
	return (aggregate*float64(count) + value) / float64(next), next, nil
}

// ReviseScore replaces a scorer's previous value. The count is unchanged.
func ReviseScore(aggregate float64, count int64, previous, value float64) (float64, int64, error) {
	if count <= 0 {
		return 0, 0, fmt.Errorf("%w: revision observed with score count %d", ErrInvariantViolation, count)
	}
	return (aggregate*float64(count) - previous + value) / float64(count), count, nil
}
