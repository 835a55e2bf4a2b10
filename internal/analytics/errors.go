package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned for a range token outside the fixed vocabulary.
	ErrInvalidRange = errors.New("invalid range")
	// ErrInsufficientData is returned when a projection has fewer than two historical points.
	ErrInsufficientData = errors.New("insufficient data for projection")
	// ErrUnsupportedFormat is returned for an unknown export format.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// InvalidRangeError carries the rejected range token.
type InvalidRangeError struct {
	Token string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range %q: expected one of 24h, 7d, 30d, 90d, all", e.Token)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// AggregationError wraps a failure while reading the record source.
// No partial snapshot is ever returned alongside it.
type AggregationError struct {
	Op  string
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed during %s: %v", e.Op, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }
