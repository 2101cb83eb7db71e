package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if !validURL(c.LLM.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid cleaner base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if !validURL(c.Embedder.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "embedder.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must not be negative",
		})
	}

	if c.Database.VectorDim > 0 && c.Database.VectorDim != c.Embedder.Dimensions {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: fmt.Sprintf("vector_dim %d does not match embedder dimensions %d", c.Database.VectorDim, c.Embedder.Dimensions),
		})
	}

	// Validate Scraper config
	if c.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Scraper.Timeout < 0 || c.Scraper.BatchTimeout < 0 || c.Scraper.Delay < 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper",
			Message: "durations must not be negative",
		})
	}

	// Validate Pipeline config
	if c.Pipeline.MinLength < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.min_length",
			Message: "min_length must be positive",
		})
	}

	if c.Pipeline.SimilarityThreshold <= 0 || c.Pipeline.SimilarityThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.similarity_threshold",
			Message: "similarity_threshold must be in (0, 1]",
		})
	}

	if c.Pipeline.MaxPoints < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_points",
			Message: "max_points must be positive",
		})
	}

	if c.Diagnose.Endpoint != "" && !validURL(c.Diagnose.Endpoint) {
		errors = append(errors, ValidationError{
			Field:   "diagnose.endpoint",
			Message: "invalid endpoint URL",
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	return errors
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
