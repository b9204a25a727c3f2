// Command retrace-server runs the HTTP backend: ingestion, document
// views and retrieval-augmented chat.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/retracehq/retrace/internal/types"
	"github.com/retracehq/retrace/pkg/answer"
	"github.com/retracehq/retrace/pkg/config"
	"github.com/retracehq/retrace/pkg/indexer"
	"github.com/retracehq/retrace/pkg/llm"
	"github.com/retracehq/retrace/pkg/retriever"
	"github.com/retracehq/retrace/pkg/store"
	"github.com/retracehq/retrace/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("invalid configuration", "field", e.Field, "message", e.Message)
		}
		os.Exit(1)
	}

	ctx := context.Background()
	chunkStore, closeStore, err := newChunkStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize chunk store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	srv := server.New(server.Deps{
		Store: chunkStore,
		Indexer: indexer.New(chunkStore, indexer.Config{
			ChunkSize:    cfg.Chunker.ChunkSize,
			ChunkOverlap: cfg.Chunker.ChunkOverlap,
		}),
		Retriever: retriever.New(chunkStore, retriever.Caps{
			Strict:   cfg.Retrieval.StrictTopK,
			Freeform: cfg.Retrieval.FreeformTopK,
			Legacy:   cfg.Retrieval.LegacyTopK,
		}),
		Synthesizer: answer.New(newGenerator(cfg), answer.Config{
			PreviewLength: cfg.Answer.PreviewLength,
			Temperature:   cfg.LLM.Temperature,
			MaxTokens:     cfg.LLM.MaxTokens,
		}),
		Version: config.Version,
	})

	slog.Info("starting retrace server",
		"addr", cfg.Server.Addr,
		"store", cfg.Database.Driver,
		"generation_configured", cfg.LLM.Configured(),
	)
	if err := srv.Run(cfg.Server.Addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newChunkStore(ctx context.Context, cfg *config.Config) (types.ChunkStore, func(), error) {
	if cfg.Database.Driver == "pgvector" {
		embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
		if err != nil {
			return nil, nil, err
		}
		pg, err := store.NewPgVector(ctx, store.PgVectorConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
			BatchSize:  cfg.Database.BatchSize,
		}, embedder)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	return store.NewMemory(), func() {}, nil
}

// newGenerator returns nil when no credential is configured; the
// synthesizer then serves its unconfigured tiers.
func newGenerator(cfg *config.Config) types.Generator {
	if !cfg.LLM.Configured() {
		slog.Warn("no LLM credential configured, chat degrades to raw snippets")
		return nil
	}
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		slog.Warn("chat engine unavailable, chat degrades to raw snippets", "error", err)
		return nil
	}
	return engine
}
