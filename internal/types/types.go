// Package types declares the capability interfaces the core depends on.
package types

import (
	"context"

	"github.com/retracehq/retrace/internal/models"
)

// ChunkStore is the externally owned vector index the core treats as a
// black box: it ranks by semantic similarity and persists chunk text
// together with its metadata.
type ChunkStore interface {
	// PutBatch writes all chunks of one document atomically: either all
	// of them become queryable or none do.
	PutBatch(ctx context.Context, chunks []models.Chunk) error

	// SimilarityQuery returns the topN most relevant stored chunks for
	// the query text, most relevant first.
	SimilarityQuery(ctx context.Context, query string, topN int) ([]models.Chunk, error)

	// GetAll returns every stored chunk.
	GetAll(ctx context.Context) ([]models.Chunk, error)

	// GetBySource returns all chunks owned by the given document.
	GetBySource(ctx context.Context, sourceID string) ([]models.Chunk, error)

	// Count returns the total number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// Embedder converts texts into vector representations. Only vector-backed
// stores need one; the core never calls it directly.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator is the text-generation capability. Implementations must bound
// the call with a timeout; any transport, service or parsing error is
// returned as a wrapped models.ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}
