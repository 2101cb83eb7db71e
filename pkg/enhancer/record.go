package enhancer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/risterz/pantrypal-ai/internal/models"
)

// RecordFileName is the default file name for a saved recipe, such as
// "banana_bread_enhancements.json".
func RecordFileName(title string) string {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
	if name == "" {
		name = "recipe"
	}
	return safeFileName(name) + "_enhancements.json"
}

// SaveRecord writes record as indented JSON.
func SaveRecord(path string, record models.EnhancementRecord) error {
	if record.Enhancements == nil {
		record.Enhancements = []string{}
	}
	return writeJSON(path, record)
}

// LoadRecord reads a record written by SaveRecord. Only the enhancements are
// required; the recipe id may still come from elsewhere.
func LoadRecord(path string) (models.EnhancementRecord, error) {
	var record models.EnhancementRecord

	data, err := os.ReadFile(path)
	if err != nil {
		return record, fmt.Errorf("failed to read record: %w", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to parse record: %w", err)
	}
	if len(record.Enhancements) == 0 {
		return record, fmt.Errorf("record %s has no enhancements", path)
	}
	return record, nil
}

func writeJSON(path string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func safeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
