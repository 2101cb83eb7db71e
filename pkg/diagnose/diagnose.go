// Package diagnose checks the pieces an enhancement request depends on: the
// environment, the stored enhancement for a recipe, the chat API and the
// deployed enhance endpoint.
package diagnose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/risterz/pantrypal-ai/internal/models"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const (
	probeSystemPrompt = "You are a professional chef. Provide 3 recipe enhancements."
	probeMaxTokens    = 500
	probeTemperature  = 0.7
	previewLength     = 100
)

// ChatClient is the part of *openai.Client the probe needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RecipeLookup reads the generated enhancement row for a recipe.
type RecipeLookup interface {
	GetRecipeEnhancement(ctx context.Context, recipeID string) (*models.RecipeEnhancement, error)
}

type Config struct {
	// Env holds the variables to report on, name to value.
	Env      map[string]string
	Model    string
	Endpoint string
	Timeout  time.Duration
	// Store, Chat and HTTPClient are optional; a missing one skips its check.
	Store      RecipeLookup
	Chat       ChatClient
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Check is the result of one probe.
type Check struct {
	Name    string
	OK      bool
	Skipped bool
	Detail  string
	Err     error
}

type EnvVar struct {
	Name  string
	Found bool
}

type Report struct {
	Env      []EnvVar
	Lookup   Check
	LLM      Check
	Endpoint Check
}

// Verdict is the overall diagnosis with suggested next steps.
type Verdict struct {
	Summary     string
	Suggestions []string
}

type Diagnostics struct {
	config Config
}

func NewWithConfig(config Config) *Diagnostics {
	if config.Model == "" {
		config.Model = "deepseek-chat"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	return &Diagnostics{config: config}
}

// NewChatClient builds the OpenAI-compatible client used by the LLM probe.
func NewChatClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/chat/completions")
	}
	return openai.NewClientWithConfig(cfg)
}

// Run performs every check. Individual failures are recorded in the report,
// never returned.
func (d *Diagnostics) Run(ctx context.Context, recipeID string) Report {
	report := Report{Env: d.CheckEnv()}
	report.Lookup = d.LookupRecipe(ctx, recipeID)
	report.LLM = d.ProbeLLM(ctx)
	report.Endpoint = d.ProbeEndpoint(ctx)
	return report
}

// Missing lists the configured environment variables that are unset.
func (r Report) Missing() []string {
	var missing []string
	for _, v := range r.Env {
		if !v.Found {
			missing = append(missing, v.Name)
		}
	}
	return missing
}

func (d *Diagnostics) CheckEnv() []EnvVar {
	vars := make([]EnvVar, 0, len(d.config.Env))
	for _, name := range sortedKeys(d.config.Env) {
		vars = append(vars, EnvVar{Name: name, Found: d.config.Env[name] != ""})
	}
	return vars
}

func (d *Diagnostics) LookupRecipe(ctx context.Context, recipeID string) Check {
	check := Check{Name: "recipe lookup"}
	if d.config.Store == nil {
		check.Skipped = true
		check.Detail = "no database configured"
		return check
	}
	if recipeID == "" {
		check.Skipped = true
		check.Detail = "no recipe id given"
		return check
	}

	enhancement, err := d.config.Store.GetRecipeEnhancement(ctx, recipeID)
	if err != nil {
		check.Err = err
		check.Detail = fmt.Sprintf("no enhancement found for recipe %s", recipeID)
		return check
	}

	prefs := "none"
	if len(enhancement.DietaryPreferences) > 0 {
		prefs = strings.Join(enhancement.DietaryPreferences, ", ")
	}
	check.OK = true
	check.Detail = fmt.Sprintf("created %s, %d enhancements, dietary preferences: %s",
		enhancement.CreatedAt.Format(time.RFC3339), len(enhancement.Enhancements), prefs)
	return check
}

// ProbeLLM sends a small fixed prompt straight to the chat API.
func (d *Diagnostics) ProbeLLM(ctx context.Context) Check {
	check := Check{Name: "chat API"}
	if d.config.Chat == nil {
		check.Skipped = true
		check.Detail = "no API key configured"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	resp, err := d.config.Chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: probeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Enhance this recipe: " + testRecipe.Title},
		},
		MaxTokens:   probeMaxTokens,
		Temperature: probeTemperature,
	})
	if err != nil {
		check.Err = err
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			check.Detail = fmt.Sprintf("API error: %d", apiErr.HTTPStatusCode)
		} else {
			check.Detail = "request failed"
		}
		d.config.Logger.Debug().Err(err).Msg("chat API probe failed")
		return check
	}
	if len(resp.Choices) == 0 {
		check.Err = errors.New("invalid response structure")
		check.Detail = "response had no choices"
		return check
	}

	check.OK = true
	check.Detail = "response preview: " + preview(resp.Choices[0].Message.Content)
	return check
}

type ingredient struct {
	Original string `json:"original"`
}

type recipe struct {
	ID                  int          `json:"id"`
	Title               string       `json:"title"`
	Instructions        string       `json:"instructions"`
	ExtendedIngredients []ingredient `json:"extendedIngredients"`
}

type enhanceRequest struct {
	Recipe                 recipe   `json:"recipe"`
	UserDietaryPreferences []string `json:"userDietaryPreferences"`
}

type enhanceResponse struct {
	EnhancementID string            `json:"enhancementId"`
	Enhancements  []json.RawMessage `json:"enhancements"`
}

var testRecipe = recipe{
	ID:           123456,
	Title:        "Test Recipe",
	Instructions: "Cook the ingredients together",
	ExtendedIngredients: []ingredient{
		{Original: "1 cup flour"},
		{Original: "2 eggs"},
		{Original: "1 cup milk"},
	},
}

// ProbeEndpoint posts the test recipe to the deployed enhance endpoint.
func (d *Diagnostics) ProbeEndpoint(ctx context.Context) Check {
	check := Check{Name: "enhance endpoint"}
	if d.config.Endpoint == "" {
		check.Skipped = true
		check.Detail = "no endpoint configured"
		return check
	}

	body, err := json.Marshal(enhanceRequest{Recipe: testRecipe})
	if err != nil {
		check.Err = err
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		check.Err = fmt.Errorf("failed to create request: %w", err)
		return check
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.config.HTTPClient.Do(req)
	if err != nil {
		check.Err = err
		check.Detail = "request failed"
		return check
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		check.Err = fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		check.Detail = fmt.Sprintf("API error: %d, response: %s", resp.StatusCode, preview(string(data)))
		return check
	}

	var parsed enhanceResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		check.Err = fmt.Errorf("failed to decode endpoint response: %w", err)
		return check
	}

	id := parsed.EnhancementID
	if id == "" {
		id = "N/A"
	}
	check.OK = true
	check.Detail = fmt.Sprintf("enhancement id: %s, %d enhancements", id, len(parsed.Enhancements))
	return check
}

// Verdict maps the two API probes onto a diagnosis. A failing chat API takes
// precedence over the endpoint.
func (r Report) Verdict() Verdict {
	switch {
	case r.LLM.OK && r.Endpoint.OK:
		return Verdict{
			Summary: "All APIs are working. The issue might be a frontend JavaScript error, a network timeout or a stale browser cache.",
			Suggestions: []string{
				"Clear browser cache and refresh",
				"Check browser console for JavaScript errors",
				"Try a different browser",
			},
		}
	case r.LLM.OK:
		return Verdict{
			Summary:     "The enhance endpoint has issues",
			Suggestions: []string{"Check your deployment and server logs"},
		}
	default:
		return Verdict{
			Summary:     "The chat API has issues",
			Suggestions: []string{"Check your DeepSeek API key and quota"},
		}
	}
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > previewLength {
		return string(r[:previewLength]) + "..."
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
