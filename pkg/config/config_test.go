package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "https://api.deepseek.com/v1"
  model: "deepseek-reasoner"
  max_tokens: 800
  temperature: 0.5
  timeout: 45s

database:
  url: "postgres://localhost:5432/pantrypal"
  vector_dim: 768

scraper:
  timeout: 5s
  rate_limit: 1.5
  delay: 3s
  respect_robots: true

pipeline:
  min_length: 20
  similarity_threshold: 0.7
  max_points: 10

server:
  port: 9090
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "deepseek-reasoner", config.LLM.Model)
	assert.Equal(t, 800, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 45*time.Second, config.LLM.Timeout)
	assert.Equal(t, "postgres://localhost:5432/pantrypal", config.Database.URL)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 5*time.Second, config.Scraper.Timeout)
	assert.Equal(t, 3*time.Second, config.Scraper.Delay)
	assert.True(t, config.Scraper.RespectRobots)
	assert.Equal(t, 20, config.Pipeline.MinLength)
	assert.Equal(t, 0.7, config.Pipeline.SimilarityThreshold)
	assert.Equal(t, 10, config.Pipeline.MaxPoints)
	assert.Equal(t, 9090, config.Server.Port)

	// Unset values fall back to defaults.
	assert.Equal(t, 15*time.Second, config.Scraper.BatchTimeout)
	assert.Equal(t, "nomic-embed-text:latest", config.Embedder.Model)
	assert.Equal(t, "https://www.pantrypal-ai.space/api/deepseek/enhance", config.Diagnose.Endpoint)
	assert.Empty(t, config.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestDefaultConfig(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "deepseek-chat", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.3, config.LLM.Temperature)
	assert.Equal(t, 10*time.Second, config.Scraper.Timeout)
	assert.Equal(t, 2*time.Second, config.Scraper.Delay)
	assert.Equal(t, 15, config.Pipeline.MinLength)
	assert.Equal(t, 0.8, config.Pipeline.SimilarityThreshold)
	assert.Equal(t, 15, config.Pipeline.MaxPoints)
	assert.Zero(t, config.Database.VectorDim)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name: "invalid llm",
			modify: func(c *Config) {
				c.LLM.BaseURL = "invalid-url"
				c.LLM.MaxTokens = 10000
				c.LLM.Temperature = 3.0
			},
			errorMessages: []string{
				"llm.base_url: invalid cleaner base URL",
				"llm.max_tokens: max_tokens must be between 1 and 8192",
				"llm.temperature: temperature must be between 0 and 2",
			},
		},
		{
			name: "vector dimension mismatch",
			modify: func(c *Config) {
				c.Database.VectorDim = 1536
			},
			errorMessages: []string{
				"database.vector_dim: vector_dim 1536 does not match embedder dimensions 768",
			},
		},
		{
			name: "invalid pipeline",
			modify: func(c *Config) {
				c.Pipeline.SimilarityThreshold = 1.5
				c.Pipeline.MaxPoints = -1
			},
			errorMessages: []string{
				"pipeline.similarity_threshold",
				"pipeline.max_points",
			},
		},
		{
			name: "invalid server",
			modify: func(c *Config) {
				c.Server.Port = 70000
			},
			errorMessages: []string{"server.port"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.modify(config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.errorMessages))
			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("NEXT_PUBLIC_DEEPSEEK_API_KEY", "public-key")
	t.Setenv("DEEPSEEK_API_URL", "https://proxy.example.com/v1")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("PANTRYPAL_ENDPOINT", "http://localhost:3000/api/deepseek/enhance")
	t.Setenv("PORT", "3001")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "public-key", config.LLM.APIKey)
	assert.Equal(t, "https://proxy.example.com/v1", config.LLM.BaseURL)
	assert.Equal(t, "http://env-ollama:11434", config.Embedder.BaseURL)
	assert.Equal(t, "http://localhost:3000/api/deepseek/enhance", config.Diagnose.Endpoint)
	assert.Equal(t, 3001, config.Server.Port)

	t.Setenv("DEEPSEEK_API_KEY", "server-key")
	mergeWithEnv(config)
	assert.Equal(t, "server-key", config.LLM.APIKey)
}
