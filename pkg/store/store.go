package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/risterz/pantrypal-ai/internal/models"
	"github.com/risterz/pantrypal-ai/internal/types"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no row exists for a recipe.
var ErrNotFound = errors.New("no enhancements found")

// DefaultEnhancementType is stored for points uploaded from scrapes.
const DefaultEnhancementType = "general"

// nilID never names a real row; deleting everything but it deletes everything.
var nilID = uuid.Nil.String()

type StoreConfig struct {
	ConnString string
	// VectorDim enables the embedding column on unique enhancements when
	// positive. It must match the embedder's output size.
	VectorDim   int
	SearchLimit int
	Embedder    types.Embedder
	Logger      zerolog.Logger
}

// Store keeps scraped enhancements and the web app's generated enhancements
// in Postgres.
type Store struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

// UploadResult counts per point outcomes of an upload.
type UploadResult struct {
	Saved  int
	Failed int
}

func NewWithConfig(ctx context.Context, config StoreConfig) (*Store, error) {
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if config.Embedder != nil && config.VectorDim == 0 {
		config.VectorDim = config.Embedder.Dimensions()
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scraped_enhancements (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			recipe_id TEXT NOT NULL UNIQUE,
			enhancements JSONB NOT NULL DEFAULT '[]',
			source TEXT,
			scraped_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS unique_scraped_enhancements (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			recipe_id TEXT NOT NULL,
			enhancement TEXT NOT NULL,
			enhancement_type TEXT NOT NULL DEFAULT 'general',
			source TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (recipe_id, enhancement)
		)`,
		`CREATE TABLE IF NOT EXISTS recipe_enhancements (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			recipe_id TEXT NOT NULL,
			enhancements JSONB NOT NULL DEFAULT '[]',
			categorized_enhancements JSONB,
			dietary_preferences JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS recipe_enhancements_recipe_id_idx ON recipe_enhancements (recipe_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if s.config.VectorDim > 0 {
		if err := s.initializeVectors(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Ping checks the connection and that the tables are readable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	for _, table := range []string{"recipe_enhancements", "scraped_enhancements", "unique_scraped_enhancements"} {
		rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT id FROM %s LIMIT 1", table))
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}
	}
	return nil
}

// SaveScraped upserts the aggregate row for a recipe, replacing the points
// of any earlier scrape.
func (s *Store) SaveScraped(ctx context.Context, record models.EnhancementRecord) error {
	points := sanitizeAll(record.Enhancements)
	scrapedAt := record.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO scraped_enhancements (recipe_id, enhancements, source, scraped_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (recipe_id) DO UPDATE SET
			enhancements = EXCLUDED.enhancements,
			source = EXCLUDED.source,
			scraped_at = EXCLUDED.scraped_at`,
		record.RecipeID, points, nullable(record.SourceURL), scrapedAt)
	if err != nil {
		return fmt.Errorf("failed to save scraped enhancements: %w", err)
	}
	return nil
}

// UploadUnique upserts one row per point. A failing point is counted and
// skipped; the remaining points are still written.
func (s *Store) UploadUnique(ctx context.Context, record models.EnhancementRecord) UploadResult {
	var result UploadResult
	points := sanitizeAll(record.Enhancements)
	vectors := s.embed(ctx, points)

	for i, point := range points {
		var err error
		if vectors != nil {
			_, err = s.pool.Exec(ctx, `
				INSERT INTO unique_scraped_enhancements (recipe_id, enhancement, enhancement_type, source, embedding)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (recipe_id, enhancement) DO UPDATE SET
					enhancement_type = EXCLUDED.enhancement_type,
					source = EXCLUDED.source,
					embedding = EXCLUDED.embedding`,
				record.RecipeID, point, DefaultEnhancementType, nullable(record.SourceURL), pgvector.NewVector(vectors[i]))
		} else {
			_, err = s.pool.Exec(ctx, `
				INSERT INTO unique_scraped_enhancements (recipe_id, enhancement, enhancement_type, source)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (recipe_id, enhancement) DO UPDATE SET
					enhancement_type = EXCLUDED.enhancement_type,
					source = EXCLUDED.source`,
				record.RecipeID, point, DefaultEnhancementType, nullable(record.SourceURL))
		}
		if err != nil {
			s.config.Logger.Warn().Err(err).Str("recipe_id", record.RecipeID).Msg("failed to upload enhancement")
			result.Failed++
			continue
		}
		result.Saved++
	}

	return result
}

// Upload writes the aggregate row and then every point individually.
func (s *Store) Upload(ctx context.Context, record models.EnhancementRecord) (UploadResult, error) {
	if err := s.SaveScraped(ctx, record); err != nil {
		return UploadResult{}, err
	}
	return s.UploadUnique(ctx, record), nil
}

// GetScraped reads the per point table newest first and falls back to the
// aggregate row when it holds nothing for the recipe.
func (s *Store) GetScraped(ctx context.Context, recipeID string) (*models.ScrapedEnhancement, error) {
	unique, err := s.getUnique(ctx, recipeID)
	if err != nil {
		s.config.Logger.Warn().Err(err).Str("recipe_id", recipeID).Msg("failed to read unique enhancements, using aggregate row")
	} else if unique != nil {
		return unique, nil
	}

	var result models.ScrapedEnhancement
	var source *string
	err = s.pool.QueryRow(ctx, `
		SELECT id::text, recipe_id, enhancements, source, scraped_at
		FROM scraped_enhancements
		WHERE recipe_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, recipeID).Scan(&result.ID, &result.RecipeID, &result.Enhancements, &source, &result.ScrapedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scraped enhancements: %w", err)
	}

	result.Enhancements = dedupe(result.Enhancements)
	if source != nil {
		result.SourceURL = *source
	}
	return &result, nil
}

func (s *Store) getUnique(ctx context.Context, recipeID string) (*models.ScrapedEnhancement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT enhancement, COALESCE(source, ''), created_at
		FROM unique_scraped_enhancements
		WHERE recipe_id = $1
		ORDER BY created_at DESC`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result *models.ScrapedEnhancement
	for rows.Next() {
		var text, source string
		var createdAt time.Time
		if err := rows.Scan(&text, &source, &createdAt); err != nil {
			return nil, err
		}
		if result == nil {
			result = &models.ScrapedEnhancement{RecipeID: recipeID, SourceURL: source, ScrapedAt: createdAt}
		}
		result.Enhancements = append(result.Enhancements, text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if result != nil {
		result.Enhancements = dedupe(result.Enhancements)
	}
	return result, nil
}

// GetRecipeEnhancement returns the newest generated enhancement row for a recipe.
func (s *Store) GetRecipeEnhancement(ctx context.Context, recipeID string) (*models.RecipeEnhancement, error) {
	var result models.RecipeEnhancement
	var enhancements, categorized, dietary []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id::text, recipe_id, enhancements, categorized_enhancements, dietary_preferences, created_at, updated_at
		FROM recipe_enhancements
		WHERE recipe_id = $1
		ORDER BY updated_at DESC
		LIMIT 1`, recipeID).Scan(
		&result.ID,
		&result.RecipeID,
		&enhancements,
		&categorized,
		&dietary,
		&result.CreatedAt,
		&result.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe enhancement: %w", err)
	}

	if err := unmarshalOptional(enhancements, &result.Enhancements); err != nil {
		return nil, fmt.Errorf("failed to decode enhancements: %w", err)
	}
	if err := unmarshalOptional(categorized, &result.Categorized); err != nil {
		return nil, fmt.Errorf("failed to decode categorized enhancements: %w", err)
	}
	if err := unmarshalOptional(dietary, &result.DietaryPreferences); err != nil {
		return nil, fmt.Errorf("failed to decode dietary preferences: %w", err)
	}
	return &result, nil
}

// DeleteRecipeEnhancement removes every generated enhancement row for a
// recipe so the web app regenerates it on the next visit.
func (s *Store) DeleteRecipeEnhancement(ctx context.Context, recipeID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM recipe_enhancements WHERE recipe_id = $1`, recipeID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete recipe enhancement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return tag.RowsAffected(), nil
}

// ClearAll deletes every generated enhancement.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM recipe_enhancements WHERE id::text <> $1`, nilID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear recipe enhancements: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func unmarshalOptional(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func dedupe(points []string) []string {
	seen := make(map[string]struct{}, len(points))
	out := make([]string, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func sanitizeAll(points []string) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, strings.ToValidUTF8(p, ""))
	}
	return out
}
