// Package retriever issues similarity queries against the chunk store
// and bounds the result set per answer mode.
package retriever

import (
	"context"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/internal/types"
)

// Caps bound how many chunks each answer mode may pull into a prompt.
// Wider windows give generation more context; narrower ones keep the
// prompt small and the results low-noise.
type Caps struct {
	Strict   int
	Freeform int
	Legacy   int
}

// DefaultCaps mirror the tuning the answer modes were designed around.
var DefaultCaps = Caps{Strict: 15, Freeform: 5, Legacy: 3}

type Retriever struct {
	store types.ChunkStore
	caps  Caps
}

func New(store types.ChunkStore, caps Caps) *Retriever {
	if caps.Strict <= 0 {
		caps.Strict = DefaultCaps.Strict
	}
	if caps.Freeform <= 0 {
		caps.Freeform = DefaultCaps.Freeform
	}
	if caps.Legacy <= 0 {
		caps.Legacy = DefaultCaps.Legacy
	}
	return &Retriever{store: store, caps: caps}
}

// Retrieve returns at most min(mode cap, stored chunk count) chunks
// ranked by the store's similarity ordering. An empty store short
// circuits without touching the similarity capability so callers can
// tell "no knowledge" apart from "no match".
func (r *Retriever) Retrieve(ctx context.Context, query string, mode models.AnswerMode) (models.RetrievalResult, error) {
	count, err := r.store.Count(ctx)
	if err != nil {
		return models.RetrievalResult{}, err
	}
	if count == 0 {
		return models.RetrievalResult{}, nil
	}

	topN := r.capFor(mode)
	if count < topN {
		topN = count
	}

	chunks, err := r.store.SimilarityQuery(ctx, query, topN)
	if err != nil {
		return models.RetrievalResult{}, err
	}
	if len(chunks) > topN {
		chunks = chunks[:topN]
	}

	scored := make([]models.ScoredChunk, len(chunks))
	for i, c := range chunks {
		scored[i] = models.ScoredChunk{Chunk: c, Rank: i + 1}
	}
	return models.RetrievalResult{Chunks: scored, StoreCount: count}, nil
}

func (r *Retriever) capFor(mode models.AnswerMode) int {
	switch mode {
	case models.ModeFreeform:
		return r.caps.Freeform
	case models.ModeLegacy:
		return r.caps.Legacy
	default:
		return r.caps.Strict
	}
}
