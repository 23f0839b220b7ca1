package ratings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatting(t *testing.T) {
	tests := []struct {
		name   string
		format func(string) string
		input  string
		want   string
	}{
		{name: "imdb decimal", format: FormatIMDb, input: "8.8", want: "8.8"},
		{name: "imdb integer gets one decimal", format: FormatIMDb, input: "8", want: "8.0"},
		{name: "imdb rounds to one decimal", format: FormatIMDb, input: "7.26", want: "7.3"},
		{name: "imdb out of ten", format: FormatIMDb, input: "8.8/10", want: "8.8"},
		{name: "imdb non numeric passes through", format: FormatIMDb, input: "soon", want: "soon"},
		{name: "percent bare number", format: FormatPercent, input: "87", want: "87%"},
		{name: "percent already suffixed", format: FormatPercent, input: "87%", want: "87%"},
		{name: "percent decimal", format: FormatPercent, input: "87.5", want: "87.5%"},
		{name: "percent non numeric passes through", format: FormatPercent, input: "fresh", want: "fresh"},
		{name: "metacritic bare number", format: FormatMetacritic, input: "74", want: "74/100"},
		{name: "metacritic already scaled", format: FormatMetacritic, input: "74/100", want: "74/100"},
		{name: "metacritic truncates decimals", format: FormatMetacritic, input: "74.9", want: "74/100"},
		{name: "metacritic non numeric passes through", format: FormatMetacritic, input: "tbd", want: "tbd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.format(tt.input))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		got := Normalize(Ratings{IMDb: "8.8", RottenTomatoes: "87", Metacritic: "74"})
		require.NotNil(t, got)
		assert.Equal(t, Ratings{IMDb: "8.8", RottenTomatoes: "87%", Metacritic: "74/100"}, *got)
	})

	t.Run("N/A values are dropped", func(t *testing.T) {
		got := Normalize(Ratings{IMDb: "7.1", RottenTomatoes: "N/A", Metacritic: "n/a"})
		require.NotNil(t, got)
		assert.Equal(t, Ratings{IMDb: "7.1"}, *got)
	})

	t.Run("empty bundle becomes nil", func(t *testing.T) {
		assert.Nil(t, Normalize(Ratings{}))
		assert.Nil(t, Normalize(Ratings{IMDb: "N/A", RottenTomatoes: " ", Metacritic: ""}))
	})

	t.Run("normalizing twice is stable", func(t *testing.T) {
		once := Normalize(Ratings{IMDb: "9", RottenTomatoes: "96", Metacritic: "87"})
		require.NotNil(t, once)
		twice := Normalize(*once)
		assert.Equal(t, once, twice)
	})
}

func TestEntriesOrder(t *testing.T) {
	r := &Ratings{Metacritic: "74/100", IMDb: "8.8"}

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, KeyIMDb, entries[0].Key)
	assert.Equal(t, KeyMetacritic, entries[1].Key)

	var nilRatings *Ratings
	assert.Empty(t, nilRatings.Entries())
	assert.True(t, nilRatings.IsEmpty())
}

func TestSummary(t *testing.T) {
	full := &Ratings{IMDb: "8.8", RottenTomatoes: "87%", Metacritic: "74/100"}
	assert.Equal(t, "Ratings · IMDb 8.8 · Rotten Tomatoes 87% · Metacritic 74/100", Summary(full))

	assert.Equal(t, "Ratings · Rotten Tomatoes 96%", Summary(&Ratings{RottenTomatoes: "96%"}))
	assert.Equal(t, "", Summary(nil))
	assert.Equal(t, "", Summary(&Ratings{}))
}

func TestAppendSummary(t *testing.T) {
	summary := "Ratings · IMDb 8.8"

	tests := []struct {
		name        string
		description string
		want        string
	}{
		{name: "empty description", description: "", want: summary},
		{name: "whitespace description", description: "  \n", want: summary},
		{name: "appends after blank line", description: "Dream heist thriller", want: "Dream heist thriller\n\n" + summary},
		{name: "already present", description: "Dream heist thriller\n\n" + summary, want: "Dream heist thriller\n\n" + summary},
		{name: "trims surrounding space", description: "  Plot.  ", want: "Plot.\n\n" + summary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AppendSummary(tt.description, summary))
		})
	}

	once := AppendSummary("Plot.", summary)
	assert.Equal(t, once, AppendSummary(once, summary))
}

func TestQueryCacheKey(t *testing.T) {
	assert.Equal(t, "imdb:tt1375666", Query{IMDbID: "tt1375666", Title: "Inception"}.CacheKey())
	assert.Equal(t, "title:inception-2010", Query{Title: "Inception", Year: 2010}.CacheKey())
	assert.Equal(t, Query{Title: "INCEPTION", Year: 2010}.CacheKey(), Query{Title: "inception", Year: 2010}.CacheKey())
	assert.Equal(t, "title:inception-unknown", Query{Title: "Inception"}.CacheKey())
	assert.Equal(t, "", Query{Year: 2010}.CacheKey())
	assert.True(t, Query{}.IsZero())
}

func TestIsIMDbID(t *testing.T) {
	assert.True(t, IsIMDbID("tt0111161"))
	assert.False(t, IsIMDbID("tt"))
	assert.False(t, IsIMDbID("kitsu:123"))
	assert.False(t, IsIMDbID("tt123abc"))
}
