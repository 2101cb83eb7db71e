package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/risterz/pantrypal-ai/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestNewCleanerWithConfig(t *testing.T) {
	_, err := llm.NewCleanerWithConfig(llm.CleanerConfig{})
	assert.ErrorIs(t, err, llm.ErrNoAPIKey)

	cleaner, err := llm.NewCleanerWithConfig(llm.CleanerConfig{
		APIKey:  "sk-test",
		BaseURL: "https://api.deepseek.com/v1/chat/completions",
	})
	require.NoError(t, err)

	config := cleaner.Config()
	assert.Equal(t, "https://api.deepseek.com/v1", config.BaseURL)
	assert.Equal(t, "deepseek-chat", config.Model)
	assert.Equal(t, 1000, config.MaxTokens)
	assert.Equal(t, 0.3, config.Temperature)

	_, err = llm.NewCleanerWithConfig(llm.CleanerConfig{APIKey: "sk-test", Temperature: 3})
	assert.Error(t, err)
}

func TestCleanPoints(t *testing.T) {
	model := &fakeModel{reply: "Here are the cleaned tips:\n\n1. Rest the dough for 20 minutes\n2. Bake on the middle rack!\n- ok"}
	cleaner, err := llm.NewCleanerWithModel(llm.CleanerConfig{}, model)
	require.NoError(t, err)

	got, err := cleaner.CleanPoints(context.Background(), "Bread", []string{"raw one", "raw two"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rest the dough for 20 minutes.", "Bake on the middle rack!"}, got)

	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	prompt := model.messages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "for Bread.")
	assert.Contains(t, prompt, "raw one\n\nraw two")
	assert.Equal(t, 1000, model.options.MaxTokens)
	assert.Equal(t, 0.3, model.options.Temperature)
}

func TestCleanPointsFailures(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		cleaner, err := llm.NewCleanerWithModel(llm.CleanerConfig{}, &fakeModel{err: errors.New("boom")})
		require.NoError(t, err)

		got, err := cleaner.CleanPoints(context.Background(), "Soup", []string{"raw"})
		assert.Error(t, err)
		assert.Nil(t, got)
	})

	t.Run("nothing usable", func(t *testing.T) {
		cleaner, err := llm.NewCleanerWithModel(llm.CleanerConfig{}, &fakeModel{reply: "# Tips\n\nshort"})
		require.NoError(t, err)

		_, err = cleaner.CleanPoints(context.Background(), "Soup", []string{"raw"})
		assert.ErrorIs(t, err, llm.ErrEmptyResponse)
	})

	t.Run("no input", func(t *testing.T) {
		model := &fakeModel{}
		cleaner, err := llm.NewCleanerWithModel(llm.CleanerConfig{}, model)
		require.NoError(t, err)

		got, err := cleaner.CleanPoints(context.Background(), "Soup", nil)
		assert.NoError(t, err)
		assert.Empty(t, got)
		assert.Nil(t, model.messages)
	})
}

func TestCleanPointsOverHTTP(t *testing.T) {
	var gotAuth, gotPath string
	var body map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "deepseek-chat",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "- Use a hot pan for a good sear"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20}
		}`))
	}))
	defer server.Close()

	cleaner, err := llm.NewCleanerWithConfig(llm.CleanerConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	got, err := cleaner.CleanPoints(context.Background(), "Steak", []string{"use a hot pan"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Use a hot pan for a good sear."}, got)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.True(t, strings.HasSuffix(gotPath, "/chat/completions"))
	assert.Equal(t, "deepseek-chat", body["model"])
}

func TestCleanPointsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "authentication_error"}}`))
	}))
	defer server.Close()

	cleaner, err := llm.NewCleanerWithConfig(llm.CleanerConfig{APIKey: "sk-bad", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := cleaner.CleanPoints(context.Background(), "Steak", []string{"use a hot pan"})
	assert.Error(t, err)
	assert.Nil(t, got)
}
