// Package extractor pulls candidate tip fragments out of parsed recipe pages.
//
// Two strategies exist. SiteExtractor walks the sections of a known site's
// profile. GenericExtractor knows nothing about the site and looks for
// keyword-bearing paragraphs, list items and tip/note containers; callers use
// it when the site-specific pass finds nothing.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/risterz/pantrypal-ai/pkg/processor"
	"github.com/risterz/pantrypal-ai/pkg/sites"
)

// ReviewKeywords gate text taken from review and comment sections.
var ReviewKeywords = []string{"tip", "suggest", "recommend", "better", "improve", "enhance", "try", "substitute"}

// TipKeywords gate paragraphs and list items in generic extraction.
var TipKeywords = []string{"tip", "hint", "note", "suggestion", "recommend", "try", "substitute", "alternative", "variation", "improve"}

const containerSelector = "div[class*=tip], div[class*=note], div[class*=hint], section[class*=tip], section[class*=note]"

// SiteExtractor extracts fragments using a site profile.
type SiteExtractor struct {
	reviewKeywords []string
}

func NewSiteExtractor(reviewKeywords []string) *SiteExtractor {
	if len(reviewKeywords) == 0 {
		reviewKeywords = ReviewKeywords
	}
	return &SiteExtractor{reviewKeywords: reviewKeywords}
}

// Extract returns fragments in document order, section by section. An empty
// result is not an error; it means generic extraction should run.
func (e *SiteExtractor) Extract(doc *goquery.Document, profile sites.Profile) []string {
	var fragments []string

	for _, section := range profile.Sections {
		doc.Find(section.Selector).Each(func(_ int, node *goquery.Selection) {
			switch section.Mode {
			case sites.ModeItems:
				node.Find("p, li").Each(func(_ int, item *goquery.Selection) {
					if text, ok := e.accept(item, section); ok {
						fragments = append(fragments, text)
					}
				})
			case sites.ModeBlock:
				if text, ok := e.accept(node, section); ok {
					fragments = append(fragments, text)
				}
			}
		})
	}

	return fragments
}

func (e *SiteExtractor) accept(sel *goquery.Selection, section sites.Section) (string, bool) {
	text := processor.CollapseSpace(sel.Text())
	if processor.Length(text) <= section.MinLength {
		return "", false
	}
	if section.RequireKeywords && !containsAny(strings.ToLower(text), e.reviewKeywords) {
		return "", false
	}
	return text, true
}

// GenericConfig holds the thresholds of the generic pass. Lengths are exclusive.
type GenericConfig struct {
	Keywords           []string
	ParagraphMinLength int
	ItemMinLength      int
	ContainerMinLength int
}

// GenericExtractor extracts fragments from any page.
type GenericExtractor struct {
	config GenericConfig
}

func NewGenericExtractor(config GenericConfig) *GenericExtractor {
	if len(config.Keywords) == 0 {
		config.Keywords = TipKeywords
	}
	if config.ParagraphMinLength == 0 {
		config.ParagraphMinLength = 20
	}
	if config.ItemMinLength == 0 {
		config.ItemMinLength = 15
	}
	if config.ContainerMinLength == 0 {
		config.ContainerMinLength = 20
	}
	return &GenericExtractor{config: config}
}

// Extract scans paragraphs, then list items, then tip/note/hint containers.
// Container text needs no keyword since the class name already matched.
func (e *GenericExtractor) Extract(doc *goquery.Document) []string {
	var fragments []string

	collect := func(selector string, minLength int, needKeyword bool) {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := processor.CollapseSpace(sel.Text())
			if processor.Length(text) <= minLength {
				return
			}
			if needKeyword && !containsAny(strings.ToLower(text), e.config.Keywords) {
				return
			}
			fragments = append(fragments, text)
		})
	}

	collect("p", e.config.ParagraphMinLength, true)
	collect("li", e.config.ItemMinLength, true)
	collect(containerSelector, e.config.ContainerMinLength, false)

	return fragments
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
