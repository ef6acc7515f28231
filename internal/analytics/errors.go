package analytics

import "errors"

var (
	// ErrEventsEmpty is returned when a series carries no events.
	ErrEventsEmpty = errors.New("events array cannot be empty")

	// ErrInvalidAggregate is returned when an aggregate name is outside the vocabulary.
	ErrInvalidAggregate = errors.New("invalid aggregate values provided")

	// ErrEmptySeries is returned when a requested attribute has no numeric observations.
	ErrEmptySeries = errors.New("no numeric values to aggregate")

	// ErrInvalidCondition is returned for a heatmap condition that is not supported.
	ErrInvalidCondition = errors.New("invalid condition provided")
)
