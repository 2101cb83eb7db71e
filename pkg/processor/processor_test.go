package processor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithConfigDefaults(t *testing.T) {
	p := New()
	config := p.Config()

	assert.Equal(t, 15, config.MinLength)
	assert.Equal(t, 0.8, config.SimilarityThreshold)
	assert.Equal(t, 15, config.MaxPoints)
	assert.Equal(t, ImportantKeywords, config.ImportantKeywords)
	assert.Equal(t, CookingTerms, config.CookingTerms)
	assert.Equal(t, BoilerplatePrefixes, config.BoilerplatePrefixes)
}

func TestNormalize(t *testing.T) {
	p := New()

	t.Run("drops short fragments", func(t *testing.T) {
		assert.Empty(t, p.Normalize([]string{"ok"}))
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		got := p.Normalize([]string{"  Chill the\n\tdough   overnight  "})
		assert.Equal(t, []string{"Chill the dough overnight"}, got)
	})

	t.Run("exact duplicates ignore case", func(t *testing.T) {
		got := p.Normalize([]string{
			"Season the pan well first.",
			"season the pan WELL first.",
			"Use a cast iron skillet.",
		})
		assert.Equal(t, []string{"Season the pan well first.", "Use a cast iron skillet."}, got)
	})

	t.Run("short example with lower minimum", func(t *testing.T) {
		short := NewWithConfig(ProcessorConfig{MinLength: 5})
		got := short.Normalize([]string{"Add salt.", "add salt."})
		assert.Equal(t, []string{"Add salt."}, got)
	})
}

func TestFilterSentences(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no vocabulary match",
			in:   []string{"The sky is blue today"},
			want: nil,
		},
		{
			name: "boilerplate prefix",
			in:   []string{"Your Private Notes: bake at 350 for best results."},
			want: nil,
		},
		{
			name: "click here prefix",
			in:   []string{"Click here to see how we bake the bread."},
			want: nil,
		},
		{
			name: "splits and keeps matching sentences",
			in:   []string{"I love this recipe so much. Always rest the meat before slicing! The kids ate it all."},
			want: []string{"Always rest the meat before slicing!"},
		},
		{
			name: "removes asides and weak modals",
			in:   []string{"You can substitute butter (salted or not) for the oil"},
			want: []string{"substitute butter for the oil."},
		},
		{
			name: "removes bracketed asides",
			in:   []string{"Toast the spices [about 2 minutes] until fragrant."},
			want: []string{"Toast the spices until fragrant."},
		},
		{
			name: "drops sentences too short after cleaning",
			in:   []string{"We should bake (see notes above) it."},
			want: nil,
		},
		{
			name: "keeps question marks",
			in:   []string{"Why not roast the garlic first?"},
			want: []string{"Why not roast the garlic first?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.FilterSentences(tt.in))
		})
	}
}

func TestFilterSentencesOutputInvariant(t *testing.T) {
	p := New()
	in := []string{
		"Tip: chill the dough. It spreads less (trust me) in the oven! You should always preheat",
		"Stir gently. Fold in the whites with a spatula; we might lose volume otherwise",
	}

	for _, s := range p.FilterSentences(in) {
		assert.GreaterOrEqual(t, Length(s), 15, s)
		assert.True(t, HasTerminal(s), s)
		assert.NotContains(t, s, "(")
		assert.NotContains(t, s, "  ")
	}
}

func TestSuppress(t *testing.T) {
	p := New()

	t.Run("near duplicate rejected", func(t *testing.T) {
		got := p.Suppress([]string{
			"Bake at 350 degrees for best results.",
			"Bake at 350 degrees for the best results,",
		})
		assert.Equal(t, []string{"Bake at 350 degrees for best results."}, got)
	})

	t.Run("first accepted wins", func(t *testing.T) {
		got := p.Suppress([]string{
			"Bake at 350 degrees for the best results,",
			"Bake at 350 degrees for best results.",
		})
		assert.Equal(t, []string{"Bake at 350 degrees for the best results,"}, got)
	})

	t.Run("distinct points kept in order", func(t *testing.T) {
		in := []string{
			"Use cold butter for flaky layers.",
			"Rest the dough for thirty minutes.",
			"Brush with egg wash before baking.",
		}
		assert.Equal(t, in, p.Suppress(in))
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		strict := NewWithConfig(ProcessorConfig{SimilarityThreshold: 0.3})
		got := strict.Suppress([]string{
			"Use cold butter for flaky layers.",
			"Use cold butter for a tender crumb.",
		})
		assert.Len(t, got, 1)
	})

	t.Run("accepted points stay below threshold", func(t *testing.T) {
		in := []string{
			"Salt the water generously before boiling pasta.",
			"Salt the water generously before you boil pasta.",
			"Reserve a cup of pasta water for the sauce.",
			"Reserve one cup of the pasta water for sauce.",
		}
		got := p.Suppress(in)
		for i := range got {
			for j := i + 1; j < len(got); j++ {
				assert.LessOrEqual(t, Similarity(Simplify(got[i]), Simplify(got[j])), 0.8)
			}
		}
	})
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 7.0/8.0, Similarity(
		Simplify("Bake at 350 degrees for best results."),
		Simplify("Bake at 350 degrees for the best results,"),
	), 1e-9)
	assert.Equal(t, 1.0, Similarity("a b", "b a"))
	assert.Equal(t, 0.0, Similarity("", "anything"))
	assert.Equal(t, 0.0, Similarity("one", "two"))
}

func TestRank(t *testing.T) {
	p := New()

	var in []string
	for i := 0; i < 30; i++ {
		in = append(in, fmt.Sprintf("Point %s.", strings.Repeat("x", i%7+10)))
	}

	got := p.Rank(in)
	require.Len(t, got, 15)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, Length(got[i-1]), Length(got[i]))
	}

	t.Run("stable for equal lengths", func(t *testing.T) {
		got := p.Rank([]string{"aaaa", "bbbbbb", "cccc", "dddddd"})
		assert.Equal(t, []string{"bbbbbb", "dddddd", "aaaa", "cccc"}, got)
	})

	t.Run("does not modify input", func(t *testing.T) {
		in := []string{"short one", "a much longer one"}
		p.Rank(in)
		assert.Equal(t, "short one", in[0])
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		got := p.Rank([]string{"sauté sauté", "abcdefghijkl"})
		assert.Equal(t, "abcdefghijkl", got[0])
	})

	t.Run("limit is configurable", func(t *testing.T) {
		small := NewWithConfig(ProcessorConfig{MaxPoints: 2})
		assert.Len(t, small.Rank([]string{"a", "b", "c"}), 2)
	})
}

func TestClean(t *testing.T) {
	p := New()
	got := p.Clean([]string{
		"Tip: let the dough rest for 20 minutes before baking for better texture.",
		"Tip: let the dough rest for 20 minutes before baking, for better texture",
		"The sky is blue today",
	})
	assert.Equal(t, []string{"Tip: let the dough rest for 20 minutes before baking for better texture."}, got)
}

func TestParsePointLines(t *testing.T) {
	reply := `Here are the cleaned enhancements:

# Enhancements
1. Chill the dough for an hour before rolling
2. Use room temperature eggs.
- Too short
• Brush the crust with cream for shine!`

	got := ParsePointLines(reply, 10)
	assert.Equal(t, []string{
		"Chill the dough for an hour before rolling.",
		"Use room temperature eggs.",
		"Brush the crust with cream for shine!",
	}, got)
}

func TestParseManual(t *testing.T) {
	text := "1. Add a pinch of salt\n- Toss with lemon zest\n\nok\n* Serve warm!"
	got := ParseManual(text)
	assert.Equal(t, []string{
		"Add a pinch of salt.",
		"Toss with lemon zest.",
		"Serve warm!",
	}, got)
}
