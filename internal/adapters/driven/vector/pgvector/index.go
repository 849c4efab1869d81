// Package pgvector provides a VectorIndex backed by PostgreSQL with the
// pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS chunk_vectors (
	chunk_id  TEXT PRIMARY KEY,
	pos       BIGSERIAL,
	embedding VECTOR(%d) NOT NULL
);
`

// Config holds connection settings for the pgvector index.
type Config struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// Dimensions is the fixed embedding dimension for the table.
	Dimensions int

	// QueryTimeout bounds individual statements (default 10s).
	QueryTimeout time.Duration
}

// Index stores chunk vectors in a chunk_vectors table and ranks with the
// pgvector distance operators.
type Index struct {
	db      *sql.DB
	timeout time.Duration
}

// NewIndex opens the database, verifies connectivity and ensures the
// vector table exists.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("pgvector: %w: dimensions must be positive", domain.ErrInvalidInput)
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 10 * time.Second
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(schema, cfg.Dimensions)); err != nil {
		return nil, fmt.Errorf("pgvector: ensure schema: %w", err)
	}

	return &Index{db: db, timeout: cfg.QueryTimeout}, nil
}

// Add inserts a vector for the given chunk.
func (x *Index) Add(ctx context.Context, chunkID string, embedding []float32) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	_, err := x.db.ExecContext(ctx,
		`INSERT INTO chunk_vectors (chunk_id, embedding) VALUES ($1, $2)
		 ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		chunkID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("pgvector: add %s: %w", chunkID, err)
	}
	return nil
}

// AddBatch inserts vectors for multiple chunks in one transaction.
func (x *Index) AddBatch(ctx context.Context, chunkIDs []string, embeddings [][]float32) error {
	if len(chunkIDs) != len(embeddings) {
		return domain.ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgvector: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for i, id := range chunkIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunk_vectors (chunk_id, embedding) VALUES ($1, $2)
			 ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
			id, pgvector.NewVector(embeddings[i])); err != nil {
			return fmt.Errorf("pgvector: add %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Delete removes the vectors for the given chunk ids.
func (x *Index) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	ids := make([]any, len(chunkIDs))
	placeholders := ""
	for i, id := range chunkIDs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		ids[i] = id
	}

	_, err := x.db.ExecContext(ctx,
		"DELETE FROM chunk_vectors WHERE chunk_id IN ("+placeholders+")", ids...)
	if err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

// Search ranks stored vectors with the pgvector operator for the metric.
// Cosine scores are converted to similarity (1 - distance) and filtered by
// threshold; pos keeps ties in insertion order.
func (x *Index) Search(ctx context.Context, query []float32, k int, metric domain.Metric, threshold float64) ([]driven.VectorHit, error) {
	if !metric.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if k <= 0 {
		k = 5
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	var stmt string
	args := []any{pgvector.NewVector(query)}
	switch metric {
	case domain.MetricCosine:
		stmt = `SELECT chunk_id, 1 - (embedding <=> $1) AS score
			FROM chunk_vectors
			WHERE 1 - (embedding <=> $1) > $2
			ORDER BY score DESC, pos ASC LIMIT $3`
		args = append(args, threshold, k)
	case domain.MetricL2:
		stmt = `SELECT chunk_id, embedding <-> $1 AS score
			FROM chunk_vectors
			ORDER BY score ASC, pos ASC LIMIT $2`
		args = append(args, k)
	case domain.MetricInnerProduct:
		// <#> is the negative inner product.
		stmt = `SELECT chunk_id, -(embedding <#> $1) AS score
			FROM chunk_vectors
			ORDER BY score DESC, pos ASC LIMIT $2`
		args = append(args, k)
	}

	rows, err := x.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var h driven.VectorHit
		if err := rows.Scan(&h.ChunkID, &h.Score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: rows: %w", err)
	}
	return hits, nil
}

// Close releases the database handle.
func (x *Index) Close() error {
	return x.db.Close()
}
