package performance

import "errors"

var (
	// ErrInvalidInput is returned for empty, oversized, too short or
	// non-finite sample buffers
	ErrInvalidInput = errors.New("invalid input")

	// ErrAnalysisTimeout is returned when extraction exceeds the configured
	// deadline
	ErrAnalysisTimeout = errors.New("analysis timeout")

	// ErrMissingReference is returned when a comparison has no reference
	ErrMissingReference = errors.New("missing reference")
)
