package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/risterz/pantrypal-ai/pkg/processor"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

var (
	// ErrNoAPIKey is returned when the cleaner is built without credentials.
	ErrNoAPIKey = errors.New("no API key configured for the cleaning service")
	// ErrEmptyResponse is returned when the service answered but nothing in
	// the reply could be used as a point.
	ErrEmptyResponse = errors.New("cleaning service returned no usable points")
)

const (
	defaultSystemTemplate = "You are a content formatter for recipe tips. Your ONLY task is to clean and organize the existing scraped recipe tips without adding ANY new information or your own ideas. DO NOT generate new tips or enhance the content with your own knowledge. ONLY reformat and clean what is explicitly present in the input text. Remove duplicates, personal comments, and irrelevant information. Format each point as a clear, concise statement."

	defaultPromptTemplate = "Here are scraped recipe enhancements for %s. Please ONLY clean and format the EXISTING content into clear, concise points. DO NOT add any new tips or information that isn't explicitly stated in the original text. Just organize what's already there:\n\n%s"
)

// CleanerConfig represents the configuration for the external cleaning
// service. Any OpenAI compatible chat completion API works; DeepSeek is the
// default.
type CleanerConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	PromptTemplate string
	Timeout        time.Duration
	// MinPointLength is exclusive, like the rest of the reply parsing.
	MinPointLength int
	Logger         zerolog.Logger
}

// Cleaner asks a language model to tidy scraped points without adding new ones.
type Cleaner struct {
	config CleanerConfig
	llm    llms.Model
}

func applyCleanerDefaults(config CleanerConfig) (CleanerConfig, error) {
	if config.Model == "" {
		config.Model = "deepseek-chat"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.deepseek.com/v1"
	}
	// The client appends the route itself, so a full endpoint URL from the
	// environment is trimmed back to its base.
	config.BaseURL = strings.TrimSuffix(strings.TrimRight(config.BaseURL, "/"), "/chat/completions")
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	} else if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}
	if config.PromptTemplate == "" {
		config.PromptTemplate = defaultPromptTemplate
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MinPointLength == 0 {
		config.MinPointLength = 10
	}
	return config, nil
}

// NewCleanerWithConfig creates a Cleaner backed by the OpenAI compatible
// endpoint in config.
func NewCleanerWithConfig(config CleanerConfig) (*Cleaner, error) {
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	config, err := applyCleanerDefaults(config)
	if err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Cleaner{
		config: config,
		llm:    llm,
	}, nil
}

// NewCleanerWithModel creates a Cleaner around an existing model.
func NewCleanerWithModel(config CleanerConfig, model llms.Model) (*Cleaner, error) {
	config, err := applyCleanerDefaults(config)
	if err != nil {
		return nil, err
	}
	return &Cleaner{config: config, llm: model}, nil
}

// Config returns the effective configuration.
func (c *Cleaner) Config() CleanerConfig {
	return c.config
}

// CleanPoints sends the raw points and parses the reply into new points.
// A failed call or a reply with no usable lines is an error; partial output
// is never returned alongside one.
func (c *Cleaner) CleanPoints(ctx context.Context, title string, points []string) ([]string, error) {
	if len(points) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, c.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, fmt.Sprintf(c.config.PromptTemplate, title, strings.Join(points, "\n\n"))),
	}

	c.config.Logger.Debug().Str("title", title).Int("points", len(points)).Msg("sending points to cleaning service")

	response, err := c.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(c.config.MaxTokens),
		llms.WithTemperature(c.config.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("cleaning service error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return nil, ErrEmptyResponse
	}

	cleaned := processor.ParsePointLines(response.Choices[0].Content, c.config.MinPointLength)
	if len(cleaned) == 0 {
		return nil, ErrEmptyResponse
	}

	c.config.Logger.Debug().Str("title", title).Int("points", len(cleaned)).Msg("cleaning service replied")
	return cleaned, nil
}
