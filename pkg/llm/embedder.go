package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbedderConfig represents the configuration for the embedding model.
type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
	// Dimensions is the vector size the model produces. Embeddings of any
	// other size are rejected before they reach the store.
	Dimensions int
}

// EmbeddingModel is the part of a langchaingo model the embedder needs.
type EmbeddingModel interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder turns enhancement text into vectors for similarity search.
type Embedder struct {
	config EmbedderConfig
	model  EmbeddingModel
}

func applyEmbedderDefaults(config EmbedderConfig) EmbedderConfig {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Dimensions == 0 {
		config.Dimensions = 768
	}
	return config
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	config = applyEmbedderDefaults(config)

	emb, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		model:  emb,
	}, nil
}

// NewEmbedderWithModel wraps an existing model.
func NewEmbedderWithModel(config EmbedderConfig, model EmbeddingModel) *Embedder {
	return &Embedder{config: applyEmbedderDefaults(config), model: model}
}

func (e *Embedder) Dimensions() int {
	return e.config.Dimensions
}

// CreateEmbedding returns one vector per text, in order.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.model.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.config.Dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(v), e.config.Dimensions)
		}
	}
	return vectors, nil
}
