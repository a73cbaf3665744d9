package domain

import "errors"

var (
	// ErrDatasetEmpty is returned when an index build is attempted over a
	// dataset with zero records. Fatal to startup.
	ErrDatasetEmpty = errors.New("dataset is empty")

	// ErrEmptyQuery is returned for blank or whitespace-only queries.
	// Recoverable; the caller should re-prompt.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrRetrieval wraps failures from the embedding call or index query.
	// Masking a retrieval failure in a health-advice tool is worse than a
	// visible error, so it is surfaced to the caller unmodified.
	ErrRetrieval = errors.New("retrieval failed")
)
