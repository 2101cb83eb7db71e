package processor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	asidePattern      = regexp.MustCompile(`[\(\[].*?[\)\]]`)
	weakModalPattern  = regexp.MustCompile(`(?i)\b(?:I|we|you)\s+(?:can|should|could|might|may)\b`)
	spaceBeforePunct  = regexp.MustCompile(`\s+([.,!?;:])`)
	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
	listMarkerPattern = regexp.MustCompile(`^[\d\-\.\*•]+\s*`)
	numberingPattern  = regexp.MustCompile(`^\d+\.\s*`)
	bulletPattern     = regexp.MustCompile(`^[\-\*•]\s*`)
)

// CollapseSpace replaces every run of whitespace with one space and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Length counts characters, not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// EnsureTerminal appends a period unless s already ends in . ! or ?.
func EnsureTerminal(s string) string {
	if HasTerminal(s) {
		return s
	}
	return s + "."
}

func HasTerminal(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Simplify lowercases s, drops punctuation and collapses whitespace. Near
// duplicate detection compares simplified forms.
func Simplify(s string) string {
	return CollapseSpace(nonWordPattern.ReplaceAllString(strings.ToLower(s), ""))
}

// Similarity is the Jaccard index of the whitespace separated word sets of a
// and b. Either side being empty yields 0.
func Similarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// ParsePointLines turns a newline delimited list, such as a language model
// reply, into points. Blank lines, markdown headers and "Here ..." preambles
// are skipped; numbering and bullets are stripped; lines not longer than
// minLength are dropped.
func ParsePointLines(text string, minLength int) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "Here") {
			continue
		}
		line = strings.TrimSpace(listMarkerPattern.ReplaceAllString(line, ""))
		if Length(line) <= minLength {
			continue
		}
		points = append(points, EnsureTerminal(line))
	}
	return points
}

// ParseManual parses hand-written enhancements, one per line.
func ParseManual(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if Length(line) <= 5 {
			continue
		}
		line = numberingPattern.ReplaceAllString(line, "")
		line = bulletPattern.ReplaceAllString(line, "")
		points = append(points, EnsureTerminal(line))
	}
	return points
}
