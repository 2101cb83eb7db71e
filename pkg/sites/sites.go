package sites

import (
	"fmt"
	"strings"
)

// SiteID names a recipe website with a known page layout.
type SiteID string

const (
	AllRecipes    SiteID = "allrecipes"
	FoodNetwork   SiteID = "foodnetwork"
	Epicurious    SiteID = "epicurious"
	BBCGoodFood   SiteID = "bbcgoodfood"
	SimplyRecipes SiteID = "simplyrecipes"
	SeriousEats   SiteID = "seriouseats"
	Other         SiteID = "other"
)

// All lists every identifier in the order sites are matched against URLs.
var All = []SiteID{AllRecipes, FoodNetwork, Epicurious, BBCGoodFood, SimplyRecipes, SeriousEats, Other}

// Mode says how text is pulled out of a node matched by a section selector.
type Mode int

const (
	// ModeItems collects every descendant paragraph and list item.
	ModeItems Mode = iota
	// ModeBlock takes the text of the matched node itself.
	ModeBlock
)

// Section is one structural location on a page that tends to hold tips.
type Section struct {
	Selector string
	Mode     Mode
	// MinLength is exclusive: a fragment must be longer than this.
	MinLength int
	// RequireKeywords marks review and comment sections, where only text
	// mentioning a review keyword counts.
	RequireKeywords bool
}

// Profile is the set of sections searched on one site.
type Profile struct {
	Sections []Section
}

const (
	tipMinLength    = 15
	reviewMinLength = 20
)

var profiles = map[SiteID]Profile{
	AllRecipes: {Sections: []Section{
		{Selector: ".recipe-tips, .tips-section, .recipeNote, .recipe__tips, .recipe-note", Mode: ModeItems, MinLength: tipMinLength},
		{Selector: ".recipe-review-body, .feedback__content, .review-content", Mode: ModeBlock, MinLength: reviewMinLength, RequireKeywords: true},
	}},
	FoodNetwork: {Sections: []Section{
		{Selector: ".o-RecipeTips, .o-Notes, .recipe-tips-list, .recipe-footnotes", Mode: ModeItems, MinLength: tipMinLength},
	}},
	Epicurious: {Sections: []Section{
		{Selector: ".recipe-note, .cook-notes, .tip-content, .community-tips", Mode: ModeBlock, MinLength: tipMinLength},
	}},
	BBCGoodFood: {Sections: []Section{
		{Selector: ".recipe__tips, .recipe-tips, .recipe-method__item, .tip-content", Mode: ModeBlock, MinLength: tipMinLength},
	}},
	SimplyRecipes: {Sections: []Section{
		{Selector: ".recipe-note, .section--tips, .section--notes, .recipe-method__tip", Mode: ModeBlock, MinLength: tipMinLength},
	}},
	SeriousEats: {Sections: []Section{
		{Selector: ".recipe-note, .recipe-notes, .recipe-tips, .note-block, .note-text", Mode: ModeBlock, MinLength: tipMinLength},
	}},
}

// Site is a resolved identifier. Profile is nil when the site has no
// profile, in which case only generic extraction applies.
type Site struct {
	ID      SiteID
	Profile *Profile
}

// Known reports whether the site has a profile.
func (s Site) Known() bool {
	return s.Profile != nil
}

// Resolve looks up the profile for id. Unknown identifiers resolve to an
// unknown site rather than an error.
func Resolve(id SiteID) Site {
	p, ok := profiles[id]
	if !ok {
		return Site{ID: id}
	}
	sections := make([]Section, len(p.Sections))
	copy(sections, p.Sections)
	return Site{ID: id, Profile: &Profile{Sections: sections}}
}

// Parse validates a user supplied site name.
func Parse(name string) (SiteID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Other, nil
	}
	for _, id := range All {
		if string(id) == name {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown site %q (want one of %s)", name, Names())
}

// Detect picks the site whose name appears in the URL.
func Detect(rawURL string) SiteID {
	lower := strings.ToLower(rawURL)
	for _, id := range All {
		if id == Other {
			continue
		}
		if strings.Contains(lower, string(id)) {
			return id
		}
	}
	return Other
}

// Names returns the identifiers joined for help text.
func Names() string {
	names := make([]string, len(All))
	for i, id := range All {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}
