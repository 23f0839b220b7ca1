package overlay

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/lepinkainen/posterratings/internal/errors"
	"github.com/lepinkainen/posterratings/internal/ratings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fullBundle = &ratings.Ratings{IMDb: "8.8", RottenTomatoes: "87%", Metacritic: "74/100"}

func decode(t *testing.T, uri string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, DataURIPrefix), "not an svg data uri: %.40s", uri)
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
	require.NoError(t, err)
	return string(raw)
}

func TestRender_ProducesSelfContainedSVG(t *testing.T) {
	uri, err := Render("https://images.example/poster.jpg", fullBundle)
	require.NoError(t, err)

	svg := decode(t, uri)
	assert.Contains(t, svg, `viewBox="0 0 1000 1500"`)
	assert.Contains(t, svg, `href="https://images.example/poster.jpg"`)
	assert.Contains(t, svg, `height="270" fill="url(#overlayGradient)"`)
	assert.Contains(t, svg, ">IMDb<")
	assert.Contains(t, svg, ">8.8<tspan")
	assert.Contains(t, svg, ">Rotten Tomatoes<")
	assert.Contains(t, svg, ">87%<tspan")
	assert.Contains(t, svg, ">Metacritic<")
	assert.Contains(t, svg, ">74/100<tspan")
	assert.Contains(t, svg, " /10</tspan>")
}

func TestRender_Deterministic(t *testing.T) {
	first, err := Render("https://images.example/poster.jpg", fullBundle)
	require.NoError(t, err)
	second, err := Render("https://images.example/poster.jpg", &ratings.Ratings{IMDb: "8.8", RottenTomatoes: "87%", Metacritic: "74/100"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := Render("https://images.example/other.jpg", fullBundle)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestRender_BadgeOrderAndAccents(t *testing.T) {
	uri, err := Render("https://images.example/p.jpg", fullBundle)
	require.NoError(t, err)
	svg := decode(t, uri)

	imdb := strings.Index(svg, "#f5c518")
	rt := strings.Index(svg, "#fa320a")
	mc := strings.Index(svg, "#63c74d")
	require.True(t, imdb > 0 && rt > 0 && mc > 0)
	assert.Less(t, imdb, rt)
	assert.Less(t, rt, mc)
}

func TestRender_OnlyPresentBadges(t *testing.T) {
	uri, err := Render("https://images.example/p.jpg", &ratings.Ratings{RottenTomatoes: "91%"})
	require.NoError(t, err)
	svg := decode(t, uri)

	assert.Equal(t, 1, strings.Count(svg, `filter="url(#badgeShadow)"`))
	assert.NotContains(t, svg, ">IMDb<")
	assert.NotContains(t, svg, ">Metacritic<")
	assert.Contains(t, svg, `translate(360, 50)`, "a single badge is centred")
}

func TestRender_EscapesMarkup(t *testing.T) {
	uri, err := Render(`https://images.example/p.jpg?a=1&b="2"<x>`, &ratings.Ratings{IMDb: `<b>&"`})
	require.NoError(t, err)
	svg := decode(t, uri)

	assert.Contains(t, svg, `href="https://images.example/p.jpg?a=1&amp;b=&#34;2&#34;&lt;x&gt;"`)
	assert.Contains(t, svg, `&lt;b&gt;&amp;&#34;`)
	assert.NotContains(t, svg, `<b>`)
}

func TestRender_EmptyPoster(t *testing.T) {
	uri, err := Render("  ", fullBundle)
	require.NoError(t, err)
	assert.Empty(t, uri)
}

func TestRender_Failures(t *testing.T) {
	tests := []struct {
		name   string
		poster string
		bundle *ratings.Ratings
	}{
		{name: "nil bundle", poster: "https://images.example/p.jpg", bundle: nil},
		{name: "empty bundle", poster: "https://images.example/p.jpg", bundle: &ratings.Ratings{}},
		{name: "unsupported scheme", poster: "javascript:alert(1)", bundle: fullBundle},
		{name: "relative url", poster: "/poster.jpg", bundle: fullBundle},
		{name: "missing host", poster: "https:///poster.jpg", bundle: fullBundle},
		{name: "malformed", poster: "http://[::1", bundle: fullBundle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := Render(tt.poster, tt.bundle)
			require.Error(t, err)
			assert.True(t, errors.IsRenderError(err))
			assert.Empty(t, uri)
		})
	}
}

func TestBadgeWidth(t *testing.T) {
	assert.Equal(t, 0, BadgeWidth(0))
	assert.Equal(t, 280, BadgeWidth(1))
	assert.Equal(t, 280, BadgeWidth(2))
	assert.Equal(t, 220, BadgeWidth(3))
}

func TestLayoutBadges_Centred(t *testing.T) {
	badges := layoutBadges(fullBundle.Entries())
	require.Len(t, badges, 3)

	// 3*220 + 2*36 = 732, (1000-732)/2 = 134
	assert.Equal(t, 134, badges[0].X)
	assert.Equal(t, 134+256, badges[1].X)
	assert.Equal(t, 134+512, badges[2].X)
	assert.Equal(t, 110, badges[0].CenterX)

	last := badges[2]
	assert.LessOrEqual(t, last.X+last.Width, Width)
	assert.LessOrEqual(t, badgeTop+badgeHeight, BandHeight)
}

func TestManifestBackground(t *testing.T) {
	svg := decode(t, ManifestBackground())
	assert.Contains(t, svg, "Poster Ratings Overlay")
	assert.Equal(t, ManifestBackground(), ManifestBackground())
}
