package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/risterz/pantrypal-ai/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingModel struct {
	dims int
	err  error
}

func (f fakeEmbeddingModel) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
		out[i][0] = float32(i)
	}
	return out, nil
}

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, 768, emb.Dimensions())
}

func TestCreateEmbedding(t *testing.T) {
	emb := llm.NewEmbedderWithModel(llm.EmbedderConfig{Dimensions: 4}, fakeEmbeddingModel{dims: 4})

	vectors, err := emb.CreateEmbedding(context.Background(), []string{"first tip", "second tip"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[1][0])

	assert.Len(t, vectors[0], 4)

	none, err := emb.CreateEmbedding(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateEmbeddingErrors(t *testing.T) {
	wrongSize := llm.NewEmbedderWithModel(llm.EmbedderConfig{Dimensions: 8}, fakeEmbeddingModel{dims: 4})
	_, err := wrongSize.CreateEmbedding(context.Background(), []string{"tip"})
	assert.Error(t, err)

	failing := llm.NewEmbedderWithModel(llm.EmbedderConfig{}, fakeEmbeddingModel{err: errors.New("connection refused")})
	_, err = failing.CreateEmbedding(context.Background(), []string{"tip"})
	assert.ErrorContains(t, err, "connection refused")
}
