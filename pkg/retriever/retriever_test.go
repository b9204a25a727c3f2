package retriever_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/pkg/retriever"
)

// stubStore reports a fixed chunk population and records every
// similarity call.
type stubStore struct {
	count      int
	chunks     []models.Chunk
	queryErr   error
	queryCalls int
	lastTopN   int
}

func (s *stubStore) PutBatch(context.Context, []models.Chunk) error { return nil }

func (s *stubStore) SimilarityQuery(_ context.Context, _ string, topN int) ([]models.Chunk, error) {
	s.queryCalls++
	s.lastTopN = topN
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if topN > len(s.chunks) {
		topN = len(s.chunks)
	}
	return s.chunks[:topN], nil
}

func (s *stubStore) GetAll(context.Context) ([]models.Chunk, error) { return s.chunks, nil }

func (s *stubStore) GetBySource(context.Context, string) ([]models.Chunk, error) { return nil, nil }

func (s *stubStore) Count(context.Context) (int, error) { return s.count, nil }

func makeChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			ID:       fmt.Sprintf("doc_%d", i),
			SourceID: "doc",
			Title:    "doc",
			Text:     fmt.Sprintf("chunk %d", i),
			Ordinal:  i,
		}
	}
	return chunks
}

func TestRetrieve_EmptyStoreSkipsSimilarityCall(t *testing.T) {
	st := &stubStore{count: 0}
	r := retriever.New(st, retriever.DefaultCaps)

	result, err := r.Retrieve(context.Background(), "anything", models.ModeStrict)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Zero(t, result.StoreCount)
	assert.Zero(t, st.queryCalls, "similarity capability must not be called on an empty store")
}

func TestRetrieve_CapPerMode(t *testing.T) {
	cases := []struct {
		mode models.AnswerMode
		want int
	}{
		{models.ModeStrict, 15},
		{models.ModeFreeform, 5},
		{models.ModeLegacy, 3},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			st := &stubStore{count: 100, chunks: makeChunks(100)}
			r := retriever.New(st, retriever.DefaultCaps)

			result, err := r.Retrieve(context.Background(), "q", tc.mode)
			require.NoError(t, err)
			assert.Equal(t, tc.want, st.lastTopN)
			assert.Len(t, result.Chunks, tc.want)
		})
	}
}

func TestRetrieve_TopNBoundedByStoreCount(t *testing.T) {
	st := &stubStore{count: 2, chunks: makeChunks(2)}
	r := retriever.New(st, retriever.DefaultCaps)

	result, err := r.Retrieve(context.Background(), "q", models.ModeStrict)
	require.NoError(t, err)
	assert.Equal(t, 2, st.lastTopN)
	assert.Len(t, result.Chunks, 2)
	assert.Equal(t, 2, result.StoreCount)
}

func TestRetrieve_PreservesStoreOrderAndAssignsRanks(t *testing.T) {
	st := &stubStore{count: 4, chunks: makeChunks(4)}
	r := retriever.New(st, retriever.DefaultCaps)

	result, err := r.Retrieve(context.Background(), "q", models.ModeLegacy)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 3)
	for i, sc := range result.Chunks {
		assert.Equal(t, i+1, sc.Rank)
		assert.Equal(t, fmt.Sprintf("chunk %d", i), sc.Text)
	}
}

func TestRetrieve_PropagatesStoreError(t *testing.T) {
	st := &stubStore{count: 5, queryErr: fmt.Errorf("%w: index offline", models.ErrStorage)}
	r := retriever.New(st, retriever.DefaultCaps)

	_, err := r.Retrieve(context.Background(), "q", models.ModeStrict)
	assert.True(t, errors.Is(err, models.ErrStorage))
}
