package processor

import (
	"sort"
	"strings"
	"unicode"
)

// ImportantKeywords mark sentences that read like advice.
var ImportantKeywords = []string{
	"tip", "recommend", "suggest", "better", "best", "improve", "enhance",
	"important", "key", "essential", "critical", "crucial", "vital",
	"don't", "avoid", "never", "always", "ensure", "make sure",
	"temperature", "heat", "cook", "bake", "fry", "roast", "grill", "simmer", "boil",
	"substitute", "replace", "alternative", "instead",
	"secret", "trick", "technique", "method",
}

// CookingTerms mark sentences that talk about cooking at all.
var CookingTerms = []string{
	"cook", "bake", "fry", "roast", "grill", "simmer", "boil", "steam", "sauté",
	"broil", "poach", "blanch", "braise", "stew", "toast", "whip", "beat", "fold",
	"mix", "stir", "blend", "chop", "dice", "mince", "slice", "julienne", "grate",
	"peel", "core", "seed", "marinate", "season", "spice", "flavor", "taste",
	"texture", "consistency", "temperature", "heat", "cool", "chill", "freeze",
	"thaw", "rest", "rise", "proof", "ferment", "cure", "smoke", "dry", "dehydrate",
}

// BoilerplatePrefixes start fragments that are page chrome, not tips.
var BoilerplatePrefixes = []string{"Your Private Notes", "Click here"}

type ProcessorConfig struct {
	// MinLength is the shortest fragment or point kept, in characters.
	MinLength int
	// SimilarityThreshold rejects a point whose similarity to an accepted
	// point is strictly greater than this.
	SimilarityThreshold float64
	// MaxPoints caps the ranked output.
	MaxPoints           int
	ImportantKeywords   []string
	CookingTerms        []string
	BoilerplatePrefixes []string
}

// Processor holds the text stages between extraction and output. It keeps
// no state between calls and is safe for concurrent use.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.MinLength == 0 {
		config.MinLength = 15
	}
	if config.SimilarityThreshold == 0 {
		config.SimilarityThreshold = 0.8
	}
	if config.MaxPoints == 0 {
		config.MaxPoints = 15
	}
	if config.ImportantKeywords == nil {
		config.ImportantKeywords = ImportantKeywords
	}
	if config.CookingTerms == nil {
		config.CookingTerms = CookingTerms
	}
	if config.BoilerplatePrefixes == nil {
		config.BoilerplatePrefixes = BoilerplatePrefixes
	}

	return Processor{
		config: config,
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{})
}

// Config returns the effective configuration.
func (p Processor) Config() ProcessorConfig {
	return p.config
}

// Normalize collapses whitespace, drops short fragments and removes exact
// duplicates, ignoring case. The first spelling seen is kept.
func (p Processor) Normalize(fragments []string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, text := range fragments {
		text = CollapseSpace(text)
		if Length(text) < p.config.MinLength {
			continue
		}
		key := strings.ToLower(text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, text)
	}

	return out
}

// FilterSentences splits fragments into sentences and keeps the ones that
// mention advice or cooking, cleaned and punctuated.
func (p Processor) FilterSentences(fragments []string) []string {
	var out []string

	for _, text := range fragments {
		if Length(text) < p.config.MinLength || p.isBoilerplate(text) {
			continue
		}

		for _, sentence := range splitIntoSentences(text) {
			if Length(sentence) < p.config.MinLength {
				continue
			}
			lower := strings.ToLower(sentence)
			if !containsAny(lower, p.config.ImportantKeywords) && !containsAny(lower, p.config.CookingTerms) {
				continue
			}

			clean := cleanSentence(sentence)
			if Length(clean) >= p.config.MinLength {
				out = append(out, clean)
			}
		}
	}

	return out
}

// Suppress drops near duplicates. Candidates are compared in order against
// every point accepted so far, so the first of two similar points wins.
// This is quadratic in the number of candidates, which is fine for the few
// dozen a page yields but would not be for large inputs.
func (p Processor) Suppress(points []string) []string {
	var out []string
	var accepted []string

	for _, point := range points {
		simple := Simplify(point)

		duplicate := false
		for _, prev := range accepted {
			if Similarity(simple, prev) > p.config.SimilarityThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		out = append(out, point)
		accepted = append(accepted, simple)
	}

	return out
}

// Rank orders points longest first and keeps at most MaxPoints. Length only
// stands in for how informative a point is; equal lengths keep input order.
func (p Processor) Rank(points []string) []string {
	ranked := make([]string, len(points))
	copy(ranked, points)

	sort.SliceStable(ranked, func(i, j int) bool {
		return Length(ranked[i]) > Length(ranked[j])
	})

	if len(ranked) > p.config.MaxPoints {
		ranked = ranked[:p.config.MaxPoints]
	}
	return ranked
}

// Clean runs the sentence filter, near duplicate suppression and ranking.
func (p Processor) Clean(fragments []string) []string {
	return p.Rank(p.Suppress(p.FilterSentences(fragments)))
}

func (p Processor) isBoilerplate(text string) bool {
	for _, prefix := range p.config.BoilerplatePrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func cleanSentence(sentence string) string {
	clean := CollapseSpace(sentence)
	clean = asidePattern.ReplaceAllString(clean, "")
	clean = weakModalPattern.ReplaceAllString(clean, "")
	clean = CollapseSpace(clean)
	clean = spaceBeforePunct.ReplaceAllString(clean, "$1")
	return EnsureTerminal(clean)
}

// splitIntoSentences cuts after . ! or ? when whitespace follows.
func splitIntoSentences(text string) []string {
	var sentences []string
	runes := []rune(text)

	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if isTerminal(runes[i]) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
