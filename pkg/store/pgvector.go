// Package store provides the chunk store implementations: a Postgres
// pgvector store for production and an in-memory store for tests and
// credential-free development.
package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/internal/types"
)

type PgVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// PgVectorStore keeps chunks in Postgres with a pgvector column and
// delegates relevance ranking to cosine distance.
type PgVectorStore struct {
	config   PgVectorConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

func NewPgVector(ctx context.Context, config PgVectorConfig, embedder types.Embedder) (*PgVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PgVectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PgVectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			title TEXT,
			content TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			chunk_count INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err = vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createVectorIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	if _, err = vs.pool.Exec(ctx, createVectorIndex); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	createSourceIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_source_id_idx ON %s (source_id)`,
		vs.config.TableName, vs.config.TableName)

	if _, err = vs.pool.Exec(ctx, createSourceIndex); err != nil {
		return fmt.Errorf("failed to create source index: %w", err)
	}

	return nil
}

// PutBatch embeds and inserts all chunks inside one transaction, so a
// document becomes queryable all at once or not at all.
func (vs *PgVectorStore) PutBatch(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	embeddings := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += vs.config.BatchSize {
		end := i + vs.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, sanitizeUTF8(c.Text))
		}
		batch, err := vs.embedder.CreateEmbedding(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: failed to create embeddings: %v", models.ErrStorage, err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: embedding count mismatch: %d != %d", models.ErrStorage, len(embeddings), len(chunks))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", models.ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source_id, title, content, ordinal, chunk_count, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		vs.config.TableName)

	for i, c := range chunks {
		_, err = tx.Exec(ctx, stmt,
			c.ID,
			c.SourceID,
			sanitizeUTF8(c.Title),
			sanitizeUTF8(c.Text),
			c.Ordinal,
			c.ChunkCount,
			c.CreatedAt,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("%w: failed to insert chunk %s: %v", models.ErrStorage, c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", models.ErrStorage, err)
	}

	return nil
}

func (vs *PgVectorStore) SimilarityQuery(ctx context.Context, query string, topN int) ([]models.Chunk, error) {
	embeddings, err := vs.embedder.CreateEmbedding(ctx, []string{sanitizeUTF8(query)})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", models.ErrStorage, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: embedder returned no vector", models.ErrStorage)
	}

	sql := fmt.Sprintf(`
		SELECT id, source_id, title, content, ordinal, chunk_count, created_at
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, sql, pgvector.NewVector(embeddings[0]), topN)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query chunks: %v", models.ErrStorage, err)
	}
	return scanChunks(rows)
}

func (vs *PgVectorStore) GetAll(ctx context.Context) ([]models.Chunk, error) {
	sql := fmt.Sprintf(`
		SELECT id, source_id, title, content, ordinal, chunk_count, created_at
		FROM %s
		ORDER BY created_at DESC, ordinal`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list chunks: %v", models.ErrStorage, err)
	}
	return scanChunks(rows)
}

func (vs *PgVectorStore) GetBySource(ctx context.Context, sourceID string) ([]models.Chunk, error) {
	sql := fmt.Sprintf(`
		SELECT id, source_id, title, content, ordinal, chunk_count, created_at
		FROM %s
		WHERE source_id = $1
		ORDER BY ordinal`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, sql, sourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to filter chunks: %v", models.ErrStorage, err)
	}
	return scanChunks(rows)
}

func (vs *PgVectorStore) Count(ctx context.Context) (int, error) {
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)

	var count int
	if err := vs.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count chunks: %v", models.ErrStorage, err)
	}
	return count, nil
}

func (vs *PgVectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func scanChunks(rows pgx.Rows) ([]models.Chunk, error) {
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		err := rows.Scan(
			&c.ID,
			&c.SourceID,
			&c.Title,
			&c.Text,
			&c.Ordinal,
			&c.ChunkCount,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %v", models.ErrStorage, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return chunks, nil
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
