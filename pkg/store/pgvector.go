package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/risterz/pantrypal-ai/internal/models"
)

// ErrNoEmbedder is returned by similarity search when no embedder is configured.
var ErrNoEmbedder = errors.New("similarity search needs an embedder")

func (s *Store) initializeVectors(ctx context.Context) error {
	// Enable pgvector extension
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	addColumn := fmt.Sprintf(`
		ALTER TABLE unique_scraped_enhancements
		ADD COLUMN IF NOT EXISTS embedding vector(%d)`, s.config.VectorDim)
	if _, err := s.pool.Exec(ctx, addColumn); err != nil {
		return fmt.Errorf("failed to add embedding column: %w", err)
	}

	_, err := s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS unique_scraped_enhancements_embedding_idx
		ON unique_scraped_enhancements
		USING hnsw (embedding vector_cosine_ops)`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// embed returns one vector per point, or nil when no embedder is set or it
// fails. Points are stored without vectors rather than not at all.
func (s *Store) embed(ctx context.Context, points []string) [][]float32 {
	if s.config.Embedder == nil || s.config.VectorDim == 0 || len(points) == 0 {
		return nil
	}

	vectors, err := s.config.Embedder.CreateEmbedding(ctx, points)
	if err != nil {
		s.config.Logger.Warn().Err(err).Int("points", len(points)).Msg("failed to embed enhancements, storing without vectors")
		return nil
	}
	return vectors
}

// SimilarTips returns stored enhancements closest to text by cosine distance.
func (s *Store) SimilarTips(ctx context.Context, text string, limit int) ([]models.UniqueEnhancement, error) {
	if s.config.Embedder == nil || s.config.VectorDim == 0 {
		return nil, ErrNoEmbedder
	}
	if limit <= 0 {
		limit = s.config.SearchLimit
	}

	vectors, err := s.config.Embedder.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, recipe_id, enhancement, enhancement_type, COALESCE(source, ''), created_at, embedding <=> $1 AS distance
		FROM unique_scraped_enhancements
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, pgvector.NewVector(vectors[0]), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar enhancements: %w", err)
	}
	defer rows.Close()

	var tips []models.UniqueEnhancement
	for rows.Next() {
		var tip models.UniqueEnhancement
		err := rows.Scan(
			&tip.ID,
			&tip.RecipeID,
			&tip.Text,
			&tip.Type,
			&tip.SourceURL,
			&tip.CreatedAt,
			&tip.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		tips = append(tips, tip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read similar enhancements: %w", err)
	}

	return tips, nil
}
