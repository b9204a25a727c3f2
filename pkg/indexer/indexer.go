// Package indexer assigns document and chunk identities, writes chunks
// to the chunk store, and regroups stored chunks into document views.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/internal/types"
	"github.com/retracehq/retrace/pkg/chunker"
)

// previewLength bounds the text preview on document summaries, in runes.
const previewLength = 150

// chunkJoiner visibly separates chunks in reconstructed document text.
// Overlap regions are not reconciled, so the reconstruction may repeat
// up to overlap-size runes at each boundary.
const chunkJoiner = "\n\n"

type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

type Indexer struct {
	store  types.ChunkStore
	config Config
}

func New(store types.ChunkStore, config Config) *Indexer {
	// A zero overlap is a legal setting, so it is defaulted only
	// alongside an unset chunk size (which is never legal on its own).
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
		config.ChunkOverlap = 200
	}
	return &Indexer{
		store:  store,
		config: config,
	}
}

// Ingest chunks content and writes every chunk in one atomic batch.
// Identical titles never deduplicate: each call mints a fresh source id
// from the title and the ingestion time.
func (ix *Indexer) Ingest(ctx context.Context, title, content string) (string, int, error) {
	if strings.TrimSpace(content) == "" {
		return "", 0, models.ErrEmptyContent
	}

	texts, err := chunker.Split(content, ix.config.ChunkSize, ix.config.ChunkOverlap)
	if err != nil {
		return "", 0, err
	}
	if len(texts) == 0 {
		return "", 0, models.ErrEmptyContent
	}

	createdAt := time.Now().UTC()
	sourceID := newSourceID(title, createdAt)

	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			ID:         models.ChunkID(sourceID, i),
			SourceID:   sourceID,
			Title:      title,
			Text:       text,
			Ordinal:    i,
			ChunkCount: len(texts),
			CreatedAt:  createdAt,
		}
	}

	if err := ix.store.PutBatch(ctx, chunks); err != nil {
		if errors.Is(err, models.ErrStorage) {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	slog.Info("document ingested",
		"source_id", sourceID,
		"title", title,
		"chunk_count", len(chunks),
	)
	return sourceID, len(chunks), nil
}

// ListDocuments scans all stored chunks, groups them by source id and
// returns one summary per document, newest first. Linear in the total
// chunk count.
func (ix *Indexer) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	chunks, err := ix.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*models.DocumentSummary)
	for _, c := range chunks {
		g, ok := groups[c.SourceID]
		if !ok {
			g = &models.DocumentSummary{
				SourceID:   c.SourceID,
				Title:      c.Title,
				CreatedAt:  c.CreatedAt,
				ChunkCount: c.ChunkCount,
			}
			groups[c.SourceID] = g
		}
		if c.Ordinal == 0 {
			g.Preview = truncate(c.Text, previewLength)
		}
	}

	summaries := make([]models.DocumentSummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, *g)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].SourceID < summaries[j].SourceID
	})
	return summaries, nil
}

// GetDocument reconstructs a document from its chunks in ordinal order.
func (ix *Indexer) GetDocument(ctx context.Context, sourceID string) (*models.Document, error) {
	chunks, err := ix.store.GetBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, sourceID)
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Ordinal < chunks[j].Ordinal })

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	return &models.Document{
		SourceID:  sourceID,
		Title:     chunks[0].Title,
		CreatedAt: chunks[0].CreatedAt,
		Content:   strings.Join(texts, chunkJoiner),
	}, nil
}

// newSourceID derives an opaque document id from the title and the
// ingestion timestamp; nanosecond resolution makes collisions for equal
// titles negligible.
func newSourceID(title string, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", title, createdAt.UnixNano())))
	return hex.EncodeToString(sum[:])[:16]
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
