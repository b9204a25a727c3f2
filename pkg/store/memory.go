package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/retracehq/retrace/internal/models"
)

// MemoryStore is a brute-force in-memory chunk store. It ranks by
// lexical term overlap instead of embeddings, which is enough for tests
// and for running the server without a database or an embedding model.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks []models.Chunk
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// PutBatch appends all chunks under one lock, so a document never
// becomes partially visible.
func (s *MemoryStore) PutBatch(_ context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

// SimilarityQuery scores every stored chunk by how many query terms it
// contains, weighted by term frequency. Chunks with no matching term
// are excluded. Ties keep insertion order.
func (s *MemoryStore) SimilarityQuery(_ context.Context, query string, topN int) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(query)
	if len(terms) == 0 || topN <= 0 {
		return nil, nil
	}

	type scored struct {
		chunk models.Chunk
		score int
		order int
	}
	var matches []scored
	for i, c := range s.chunks {
		counts := termCounts(c.Text + " " + c.Title)
		score := 0
		for _, t := range terms {
			score += counts[t]
		}
		if score > 0 {
			matches = append(matches, scored{chunk: c, score: score, order: i})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].order < matches[j].order
	})

	if topN > len(matches) {
		topN = len(matches)
	}
	result := make([]models.Chunk, 0, topN)
	for _, m := range matches[:topN] {
		result = append(result, m.chunk)
	}
	return result, nil
}

func (s *MemoryStore) GetAll(_ context.Context) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

func (s *MemoryStore) GetBySource(_ context.Context, sourceID string) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Chunk
	for _, c := range s.chunks {
		if c.SourceID == sourceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, t := range tokenize(text) {
		counts[t]++
	}
	return counts
}
