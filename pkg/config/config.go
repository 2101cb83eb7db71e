package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type EmbedderConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

type DatabaseConfig struct {
	URL         string `yaml:"url"`
	VectorDim   int    `yaml:"vector_dim"`
	SearchLimit int    `yaml:"search_limit"`
}

type ScraperConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	RateLimit     float64       `yaml:"rate_limit"`
	Delay         time.Duration `yaml:"delay"`
	UserAgent     string        `yaml:"user_agent"`
	RespectRobots bool          `yaml:"respect_robots"`
}

type PipelineConfig struct {
	MinLength           int     `yaml:"min_length"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxPoints           int     `yaml:"max_points"`
}

type DiagnoseConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Database DatabaseConfig `yaml:"database"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Diagnose DiagnoseConfig `yaml:"diagnose"`
	Server   ServerConfig   `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/pantrypal/config.yaml"),
			"/etc/pantrypal/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "https://api.deepseek.com/v1"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "deepseek-chat"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 30 * time.Second
	}

	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}
	if config.Embedder.Model == "" {
		config.Embedder.Model = "nomic-embed-text:latest"
	}
	if config.Embedder.Dimensions == 0 {
		config.Embedder.Dimensions = 768
	}

	if config.Database.SearchLimit == 0 {
		config.Database.SearchLimit = 5
	}

	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 10 * time.Second
	}
	if config.Scraper.BatchTimeout == 0 {
		config.Scraper.BatchTimeout = 15 * time.Second
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if config.Scraper.Delay == 0 {
		config.Scraper.Delay = 2 * time.Second
	}

	if config.Pipeline.MinLength == 0 {
		config.Pipeline.MinLength = 15
	}
	if config.Pipeline.SimilarityThreshold == 0 {
		config.Pipeline.SimilarityThreshold = 0.8
	}
	if config.Pipeline.MaxPoints == 0 {
		config.Pipeline.MaxPoints = 15
	}

	if config.Diagnose.Endpoint == "" {
		config.Diagnose.Endpoint = "https://www.pantrypal-ai.space/api/deepseek/enhance"
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if key := firstEnv("DEEPSEEK_API_KEY", "NEXT_PUBLIC_DEEPSEEK_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if apiURL := firstEnv("DEEPSEEK_API_URL", "NEXT_PUBLIC_DEEPSEEK_API_URL"); apiURL != "" {
		config.LLM.BaseURL = apiURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embedder.BaseURL = baseURL
	}
	if endpoint := os.Getenv("PANTRYPAL_ENDPOINT"); endpoint != "" {
		config.Diagnose.Endpoint = endpoint
	}
	if port := os.Getenv("PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
