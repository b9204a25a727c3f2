package models

import (
	"fmt"
	"time"
)

// Chunk is the unit of storage and retrieval: a bounded, possibly
// overlapping slice of an ingested document. Title and CreatedAt are
// denormalized from the owning document for retrieval convenience.
type Chunk struct {
	ID         string
	SourceID   string
	Title      string
	Text       string
	Ordinal    int
	ChunkCount int
	CreatedAt  time.Time
}

// ChunkID builds the globally unique chunk identifier from the owning
// document and the chunk's position within it.
func ChunkID(sourceID string, ordinal int) string {
	return fmt.Sprintf("%s_%d", sourceID, ordinal)
}

// DocumentSummary is the list view of an ingested document.
type DocumentSummary struct {
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int       `json:"chunk_count"`
	Preview    string    `json:"preview"`
}

// Document is a fully reconstructed ingested document.
type Document struct {
	SourceID  string    `json:"source_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
}

// ScoredChunk pairs a retrieved chunk with its relevance rank,
// rank 1 being the most relevant.
type ScoredChunk struct {
	Chunk
	Rank int
}

// RetrievalResult is an ordered sequence of retrieved chunks. StoreCount
// carries the total number of stored chunks at retrieval time so callers
// can tell an empty knowledge base apart from a query with no matches.
type RetrievalResult struct {
	Chunks     []ScoredChunk
	StoreCount int
}
