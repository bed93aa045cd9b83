package apperrors

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyDocument is returned when a document yields no loadable
	// content. A defined terminal outcome for the pipeline stage, not a
	// store or provider failure.
	ErrEmptyDocument = errors.New("document has no content")

	// ErrNoEmbedding is returned when analysis completed but produced no
	// embedding. An analysis without a vector cannot be stored.
	ErrNoEmbedding = errors.New("analysis produced no embedding")

	// ErrNoData is returned by the report aggregator when neither
	// documents nor critical points exist to report on.
	ErrNoData = errors.New("no analyzed data available")

	// ErrUnsupportedFormat is returned for an unknown report output
	// format. A configuration error surfaced to the user, not a crash.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)
