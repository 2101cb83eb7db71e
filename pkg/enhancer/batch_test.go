package enhancer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/risterz/pantrypal-ai/internal/models"
	"github.com/risterz/pantrypal-ai/pkg/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	saved []models.EnhancementRecord
	err   error
}

func (r *recordingSaver) SaveScraped(_ context.Context, record models.EnhancementRecord) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, record)
	return nil
}

func batchServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bread":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><p>A good tip: let the dough rest overnight in the fridge.</p></body></html>`))
		case "/plain":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body><p>Just a story.</p></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestBatch(t *testing.T, dir string, saver RecordSaver) *Batch {
	t.Helper()
	svc := NewService(ServiceConfig{Fetcher: scraper.NewWithConfig(scraper.ScraperConfig{RateLimit: 1000})})
	return NewBatch(BatchConfig{
		Service:   svc,
		OutputDir: dir,
		Delay:     time.Millisecond,
		Saver:     saver,
	})
}

func TestBatchRun(t *testing.T) {
	server := batchServer(t)
	dir := t.TempDir()
	saver := &recordingSaver{}

	var progress []int
	batch := newTestBatch(t, dir, saver)
	batch.config.OnProgress = func(done, total int, _ models.BatchEntry) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	}

	log, err := batch.Run(context.Background(), []models.BatchRecipe{
		{ID: "1", Title: "Bread", URL: server.URL + "/bread"},
		{ID: "2", Title: "Missing", URL: server.URL + "/missing"},
		{ID: "3", Title: "Plain", URL: server.URL + "/plain"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, log.Total)
	assert.Equal(t, 2, log.Successful)
	assert.Equal(t, 1, log.Failed)
	assert.Equal(t, []int{1, 2, 3}, progress)

	require.Len(t, log.Recipes, 3)
	assert.Equal(t, "success", log.Recipes[0].Status)
	assert.Equal(t, 1, log.Recipes[0].EnhancementCount)
	assert.Equal(t, "failed", log.Recipes[1].Status)
	assert.Contains(t, log.Recipes[1].Error, "404")
	assert.Equal(t, "success", log.Recipes[2].Status)
	assert.Zero(t, log.Recipes[2].EnhancementCount)

	data, err := os.ReadFile(filepath.Join(dir, "1_enhancements.json"))
	require.NoError(t, err)
	var result models.BatchResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "Bread", result.RecipeTitle)
	assert.Equal(t, "other", result.SiteType)
	assert.Equal(t, []string{"A good tip: let the dough rest overnight in the fridge."}, result.Enhancements)

	assert.NoFileExists(t, filepath.Join(dir, "2_enhancements.json"))
	assert.FileExists(t, filepath.Join(dir, BatchLogName))

	require.Len(t, saver.saved, 2)
	assert.Equal(t, "1", saver.saved[0].RecipeID)
}

func TestBatchSaverFailure(t *testing.T) {
	server := batchServer(t)
	batch := newTestBatch(t, t.TempDir(), &recordingSaver{err: errors.New("connection refused")})

	log, err := batch.Run(context.Background(), []models.BatchRecipe{
		{ID: "1", Title: "Bread", URL: server.URL + "/bread"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, log.Failed)
	assert.Contains(t, log.Recipes[0].Error, "connection refused")
}

func TestBatchCancelled(t *testing.T) {
	server := batchServer(t)
	batch := newTestBatch(t, t.TempDir(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := batch.Run(ctx, []models.BatchRecipe{{ID: "1", Title: "Bread", URL: server.URL + "/bread"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadBatch(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("valid", func(t *testing.T) {
		path := write("ok.json", `[
			{"id": 715538, "title": "Bruschetta", "url": "https://www.allrecipes.com/recipe/1"},
			{"id": "abc", "title": "Soup", "url": "https://example.com/soup", "extra": true}
		]`)

		recipes, err := LoadBatch(path)
		require.NoError(t, err)
		assert.Equal(t, []models.BatchRecipe{
			{ID: "715538", Title: "Bruschetta", URL: "https://www.allrecipes.com/recipe/1"},
			{ID: "abc", Title: "Soup", URL: "https://example.com/soup"},
		}, recipes)
	})

	t.Run("not a list", func(t *testing.T) {
		_, err := LoadBatch(write("object.json", `{"id": 1}`))
		assert.ErrorContains(t, err, "list of recipe objects")
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := LoadBatch(write("missing.json", `[{"id": 1, "title": "No URL"}]`))
		assert.ErrorContains(t, err, "'url'")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBatch(filepath.Join(dir, "nope.json"))
		assert.Error(t, err)
	})
}
