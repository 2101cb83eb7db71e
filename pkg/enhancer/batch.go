package enhancer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/risterz/pantrypal-ai/internal/models"
	"github.com/risterz/pantrypal-ai/pkg/sites"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	BatchLogName      = "batch_scrape_log.json"
	BatchResultsDir   = "scraped_enhancements"
	batchStatusOK     = "success"
	batchStatusFailed = "failed"
)

// RecordSaver persists one scraped recipe. The store's SaveScraped fits.
type RecordSaver interface {
	SaveScraped(ctx context.Context, record models.EnhancementRecord) error
}

type BatchConfig struct {
	Service *Service
	// OutputDir receives one result file per recipe and the batch log.
	OutputDir string
	// Delay is the pause between recipes.
	Delay time.Duration
	// Clean runs the full pipeline; otherwise results hold the normalized
	// fragments, as scraped.
	Clean bool
	// Saver is optional.
	Saver      RecordSaver
	OnProgress func(done, total int, entry models.BatchEntry)
	Logger     zerolog.Logger
}

// Batch scrapes a list of recipes one after another. A failing recipe is
// logged and skipped.
type Batch struct {
	config  BatchConfig
	limiter *rate.Limiter
}

func NewBatch(config BatchConfig) *Batch {
	if config.Delay == 0 {
		config.Delay = 2 * time.Second
	}
	if config.Service == nil {
		config.Service = NewService(ServiceConfig{})
	}
	return &Batch{
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.Delay), 1),
	}
}

// Run processes recipes in order and writes the batch log. The returned error
// only covers the output directory and the log itself.
func (b *Batch) Run(ctx context.Context, recipes []models.BatchRecipe) (models.BatchLog, error) {
	batchLog := models.BatchLog{Total: len(recipes), Recipes: []models.BatchEntry{}}

	if err := os.MkdirAll(b.config.OutputDir, 0o755); err != nil {
		return batchLog, fmt.Errorf("failed to create results directory: %w", err)
	}

	for i, recipe := range recipes {
		if err := b.limiter.Wait(ctx); err != nil {
			return batchLog, err
		}

		entry := models.BatchEntry{ID: recipe.ID, Title: recipe.Title}
		count, err := b.scrapeOne(ctx, recipe)
		if err != nil {
			b.config.Logger.Warn().Err(err).
				Str("recipe_id", recipe.ID).
				Str("kind", string(Classify(err))).
				Msg("failed to process recipe")
			entry.Status = batchStatusFailed
			entry.Error = err.Error()
			batchLog.Failed++
		} else {
			entry.Status = batchStatusOK
			entry.EnhancementCount = count
			batchLog.Successful++
		}
		batchLog.Recipes = append(batchLog.Recipes, entry)

		if b.config.OnProgress != nil {
			b.config.OnProgress(i+1, len(recipes), entry)
		}
	}

	if err := writeJSON(filepath.Join(b.config.OutputDir, BatchLogName), batchLog); err != nil {
		return batchLog, err
	}

	b.config.Logger.Info().
		Int("successful", batchLog.Successful).
		Int("failed", batchLog.Failed).
		Msg("batch scraping completed")
	return batchLog, nil
}

func (b *Batch) scrapeOne(ctx context.Context, recipe models.BatchRecipe) (int, error) {
	site := sites.Detect(recipe.URL)
	pipeline := b.config.Service.config.Pipeline

	var points []string
	if b.config.Clean {
		out := b.config.Service.Process(ctx, Request{URL: recipe.URL, RecipeID: recipe.ID, Title: recipe.Title, Site: site})
		if out.Err != nil {
			return 0, out.Err
		}
		points = out.Points
	} else {
		if b.config.Service.config.Fetcher == nil {
			return 0, fmt.Errorf("no fetcher configured")
		}
		doc, err := b.config.Service.config.Fetcher.Fetch(ctx, recipe.URL)
		if err != nil {
			return 0, err
		}
		points = pipeline.Scrape(doc, site)
	}
	if points == nil {
		points = []string{}
	}

	now := time.Now()
	result := models.BatchResult{
		RecipeID:         recipe.ID,
		RecipeTitle:      recipe.Title,
		URL:              recipe.URL,
		SiteType:         string(site),
		Enhancements:     points,
		EnhancementCount: len(points),
		ScrapedAt:        now,
	}
	if err := writeJSON(filepath.Join(b.config.OutputDir, safeFileName(recipe.ID)+"_enhancements.json"), result); err != nil {
		return 0, err
	}

	if b.config.Saver != nil {
		err := b.config.Saver.SaveScraped(ctx, models.EnhancementRecord{
			RecipeID:     recipe.ID,
			RecipeTitle:  recipe.Title,
			SourceURL:    recipe.URL,
			Enhancements: points,
			ScrapedAt:    now,
		})
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrStore, err)
		}
	}

	return len(points), nil
}

// LoadBatch reads a batch input file: a JSON list of objects that each carry
// id, title and url. Numeric ids are accepted.
func LoadBatch(path string) ([]models.BatchRecipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("the batch file must contain a list of recipe objects: %w", err)
	}

	recipes := make([]models.BatchRecipe, 0, len(raw))
	for i, item := range raw {
		id, okID := scalar(item["id"])
		title, okTitle := scalar(item["title"])
		url, okURL := scalar(item["url"])
		if !okID || !okTitle || !okURL {
			return nil, fmt.Errorf("recipe %d: each recipe must have 'id', 'title', and 'url' fields", i+1)
		}
		recipes = append(recipes, models.BatchRecipe{ID: id, Title: title, URL: url})
	}
	return recipes, nil
}

func scalar(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return fmt.Sprintf("%.0f", t), t == float64(int64(t))
	}
	return "", false
}
