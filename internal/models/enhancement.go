package models

import "time"

// EnhancementRecord is the persisted shape of one scrape: the file written by
// `scrape --out` and read back by `upload`.
type EnhancementRecord struct {
	RecipeID     string    `json:"recipe_id"`
	RecipeTitle  string    `json:"recipe_title"`
	SourceURL    string    `json:"source_url"`
	Enhancements []string  `json:"enhancements"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// BatchRecipe is one entry of a batch input file.
type BatchRecipe struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// BatchResult is written per recipe into the batch results directory.
type BatchResult struct {
	RecipeID         string    `json:"recipe_id"`
	RecipeTitle      string    `json:"recipe_title"`
	URL              string    `json:"url"`
	SiteType         string    `json:"site_type"`
	Enhancements     []string  `json:"enhancements"`
	EnhancementCount int       `json:"enhancement_count"`
	ScrapedAt        time.Time `json:"scraped_at"`
}

type BatchEntry struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	EnhancementCount int    `json:"enhancement_count,omitempty"`
	Error            string `json:"error,omitempty"`
}

// BatchLog summarises a batch run.
type BatchLog struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Recipes    []BatchEntry `json:"recipes"`
}

// ScrapedEnhancement is what readers see for a recipe, whichever table it came from.
type ScrapedEnhancement struct {
	ID           string
	RecipeID     string
	Enhancements []string
	SourceURL    string
	ScrapedAt    time.Time
}

// UniqueEnhancement is one row of unique_scraped_enhancements.
type UniqueEnhancement struct {
	ID        string
	RecipeID  string
	Text      string
	Type      string
	SourceURL string
	CreatedAt time.Time
	Distance  float64
}

// RecipeEnhancement is a row of recipe_enhancements, the table the web app
// fills with generated enhancements.
type RecipeEnhancement struct {
	ID                 string
	RecipeID           string
	Enhancements       []string
	Categorized        map[string][]string
	DietaryPreferences []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
