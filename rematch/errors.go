package rematch

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrReportRepositoryRequired is returned when no repository is supplied.
	ErrReportRepositoryRequired = errors.New("report repository is required")

	// ErrMatcherRequired is returned when no matcher is supplied.
	ErrMatcherRequired = errors.New("matcher is required")
)
