package models

import "errors"

// Error taxonomy. Callers match with errors.Is; lower layers wrap these
// with fmt.Errorf("...: %w", ...) to add detail.
var (
	// ErrInvalidChunkConfig rejects chunking parameters before any storage
	// write (overlap >= max size, or non-positive max size).
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrEmptyContent rejects ingestion of empty or blank content.
	ErrEmptyContent = errors.New("content is empty")

	// ErrStorage marks chunk store failures. Never retried here; retry
	// policy, if any, belongs to the store implementation.
	ErrStorage = errors.New("chunk store failure")

	// ErrNotFound marks a document lookup miss.
	ErrNotFound = errors.New("document not found")

	// ErrGeneration marks generation capability failures. The answer
	// synthesizer converts it into a fallback answer instead of
	// propagating it.
	ErrGeneration = errors.New("generation failure")
)
