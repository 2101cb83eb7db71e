package sites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	for _, id := range All {
		t.Run(string(id), func(t *testing.T) {
			site := Resolve(id)
			assert.Equal(t, id, site.ID)
			if id == Other {
				assert.False(t, site.Known())
				return
			}
			require.True(t, site.Known())
			assert.NotEmpty(t, site.Profile.Sections)
		})
	}

	unknown := Resolve("nosuchsite")
	assert.False(t, unknown.Known())
}

func TestResolveReturnsCopy(t *testing.T) {
	site := Resolve(AllRecipes)
	site.Profile.Sections[0].Selector = "mutated"

	again := Resolve(AllRecipes)
	assert.NotEqual(t, "mutated", again.Profile.Sections[0].Selector)
}

func TestAllRecipesReviewSection(t *testing.T) {
	site := Resolve(AllRecipes)
	require.Len(t, site.Profile.Sections, 2)

	review := site.Profile.Sections[1]
	assert.True(t, review.RequireKeywords)
	assert.Equal(t, 20, review.MinLength)
	assert.Equal(t, ModeBlock, review.Mode)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    SiteID
		wantErr bool
	}{
		{"allrecipes", AllRecipes, false},
		{"  SeriousEats ", SeriousEats, false},
		{"", Other, false},
		{"other", Other, false},
		{"myblog", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		url  string
		want SiteID
	}{
		{"https://www.allrecipes.com/recipe/10813/best-chocolate-chip-cookies/", AllRecipes},
		{"https://www.FoodNetwork.com/recipes/alton-brown/baked-macaroni", FoodNetwork},
		{"https://www.bbcgoodfood.com/recipes/easy-pancakes", BBCGoodFood},
		{"https://www.seriouseats.com/the-food-lab", SeriousEats},
		{"https://example.com/my-pie", Other},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.url))
		})
	}
}
