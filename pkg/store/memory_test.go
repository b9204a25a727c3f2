package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/models"
)

func chunk(sourceID string, ordinal int, title, text string) models.Chunk {
	return models.Chunk{
		ID:        models.ChunkID(sourceID, ordinal),
		SourceID:  sourceID,
		Title:     title,
		Text:      text,
		Ordinal:   ordinal,
		CreatedAt: time.Now(),
	}
}

func TestMemoryStore_PutAndCount(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, s.PutBatch(ctx, []models.Chunk{
		chunk("a", 0, "A", "alpha text"),
		chunk("a", 1, "A", "more alpha"),
	}))

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryStore_SimilarityRanksByTermOverlap(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.PutBatch(ctx, []models.Chunk{
		chunk("a", 0, "Cooking", "how to bake sourdough bread at home"),
		chunk("b", 0, "Bread", "bread bread bread and more bread"),
		chunk("c", 0, "Gardening", "planting tomatoes in spring"),
	}))

	got, err := s.SimilarityQuery(ctx, "bread", 10)
	require.NoError(t, err)
	require.Len(t, got, 2, "chunks without any query term are excluded")
	assert.Equal(t, "Bread", got[0].Title, "higher term frequency ranks first")
	assert.Equal(t, "Cooking", got[1].Title)
}

func TestMemoryStore_SimilarityRespectsTopN(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	batch := make([]models.Chunk, 10)
	for i := range batch {
		batch[i] = chunk("doc", i, "Doc", fmt.Sprintf("common term, piece %d", i))
	}
	require.NoError(t, s.PutBatch(ctx, batch))

	got, err := s.SimilarityQuery(ctx, "common", 4)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestMemoryStore_SimilarityMatchesTitle(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.PutBatch(ctx, []models.Chunk{
		chunk("a", 0, "Kubernetes Guide", "container orchestration notes"),
	}))

	got, err := s.SimilarityQuery(ctx, "kubernetes", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryStore_GetBySource(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.PutBatch(ctx, []models.Chunk{
		chunk("a", 0, "A", "first"),
		chunk("b", 0, "B", "other"),
		chunk("a", 1, "A", "second"),
	}))

	got, err := s.GetBySource(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, "a", c.SourceID)
	}

	got, err = s.GetBySource(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_GetAllReturnsCopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.PutBatch(ctx, []models.Chunk{chunk("a", 0, "A", "text")}))

	got, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].Text = "mutated"
	again, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "text", again[0].Text)
}

func TestMemoryStore_ConcurrentBatches(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := fmt.Sprintf("doc-%d", i)
			_ = s.PutBatch(ctx, []models.Chunk{
				chunk(src, 0, src, "shared body"),
				chunk(src, 1, src, "shared body two"),
			})
		}(i)
	}
	wg.Wait()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, count)
}
