package types

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/risterz/pantrypal-ai/internal/models"
)

// Core interfaces
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

type PointCleaner interface {
	CleanPoints(ctx context.Context, title string, points []string) ([]string, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// EnhancementStore is the persistence the CLI and server need.
type EnhancementStore interface {
	Ping(ctx context.Context) error
	SaveScraped(ctx context.Context, record models.EnhancementRecord) error
	GetScraped(ctx context.Context, recipeID string) (*models.ScrapedEnhancement, error)
	GetRecipeEnhancement(ctx context.Context, recipeID string) (*models.RecipeEnhancement, error)
	SimilarTips(ctx context.Context, text string, limit int) ([]models.UniqueEnhancement, error)
	Close()
}
