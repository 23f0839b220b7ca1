// Package overlay renders rating badges on top of a poster as a
// self-contained SVG data URI. Rendering is a pure function of its inputs:
// the same poster URL and ratings always produce byte-identical output.
package overlay

import (
	"bytes"
	"encoding/base64"
	"html"
	"math"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"github.com/lepinkainen/posterratings/internal/errors"
	"github.com/lepinkainen/posterratings/internal/ratings"
)

// Canvas geometry in SVG user units (2:3 poster).
const (
	Width      = 1000
	Height     = 1500
	BandHeight = 270

	badgeHeight   = 180
	badgeGap      = 36
	badgeTop      = 50
	minBadgeWidth = 220
	maxBadgeWidth = 280
	minMargin     = 40
)

// DataURIPrefix starts every rendered overlay.
const DataURIPrefix = "data:image/svg+xml;base64,"

type style struct {
	accent   string
	subtitle string
}

var styles = map[ratings.Key]style{
	ratings.KeyIMDb:           {accent: "#f5c518", subtitle: " /10"},
	ratings.KeyRottenTomatoes: {accent: "#fa320a"},
	ratings.KeyMetacritic:     {accent: "#63c74d"},
}

type badge struct {
	X         int
	Top       int
	Width     int
	Height    int
	CenterX   int
	Accent    string
	Label     string
	LabelSize int
	Value     string
	Subtitle  string
}

type posterData struct {
	Width      int
	Height     int
	BandHeight int
	Poster     string
	Badges     []badge
}

var posterTemplate = template.Must(template.New("poster").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 {{.Width}} {{.Height}}" width="{{.Width}}" height="{{.Height}}" preserveAspectRatio="xMidYMid slice">
  <defs>
    <linearGradient id="overlayGradient" x1="0" y1="0" x2="0" y2="1">
      <stop offset="0%" stop-color="rgba(0,0,0,0.85)" />
      <stop offset="100%" stop-color="rgba(0,0,0,0.35)" />
    </linearGradient>
    <filter id="badgeShadow" x="-20%" y="-20%" width="140%" height="140%">
      <feDropShadow dx="0" dy="4" stdDeviation="12" flood-color="rgba(0,0,0,0.45)" />
    </filter>
  </defs>
  <rect width="{{.Width}}" height="{{.Height}}" fill="#101010" />
  <image href="{{.Poster}}" x="0" y="0" width="{{.Width}}" height="{{.Height}}" preserveAspectRatio="xMidYMid slice" />
  <rect x="0" y="0" width="{{.Width}}" height="{{.BandHeight}}" fill="url(#overlayGradient)" />
  <g font-family="'Segoe UI', 'Inter', sans-serif">
{{- range .Badges}}
    <g transform="translate({{.X}}, {{.Top}})" filter="url(#badgeShadow)">
      <rect width="{{.Width}}" height="{{.Height}}" rx="28" ry="28" fill="rgba(18,18,22,0.92)" stroke="{{.Accent}}" stroke-width="4" />
      <text x="{{.CenterX}}" y="95" fill="#f8f8f8" font-size="{{.LabelSize}}" font-weight="600" text-anchor="middle">{{.Label}}</text>
      <text x="{{.CenterX}}" y="150" fill="{{.Accent}}" font-size="60" font-weight="700" text-anchor="middle">{{.Value}}<tspan fill="#c8c8c8" font-size="38">{{.Subtitle}}</tspan></text>
    </g>
{{- end}}
  </g>
</svg>`))

// Render composes the badge overlay for posterURL. It returns "" without an
// error when posterURL is empty, and a RenderError when there is nothing to
// draw or the URL cannot be embedded.
func Render(posterURL string, r *ratings.Ratings) (string, error) {
	posterURL = strings.TrimSpace(posterURL)
	if posterURL == "" {
		return "", nil
	}
	if r.IsEmpty() {
		return "", errors.NewRenderError("no ratings to render")
	}
	if err := validatePosterURL(posterURL); err != nil {
		return "", err
	}

	data := posterData{
		Width:      Width,
		Height:     Height,
		BandHeight: BandHeight,
		Poster:     html.EscapeString(posterURL),
		Badges:     layoutBadges(r.Entries()),
	}

	var buf bytes.Buffer
	if err := posterTemplate.Execute(&buf, data); err != nil {
		return "", errors.NewRenderError(err.Error())
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// BadgeWidth returns the width of each badge when n badges share the band.
func BadgeWidth(n int) int {
	if n <= 0 {
		return 0
	}
	fit := int(math.Floor(float64(Width) / (float64(n) * 1.6)))
	return min(maxBadgeWidth, max(minBadgeWidth, fit))
}

func layoutBadges(entries []ratings.Entry) []badge {
	n := len(entries)
	if n == 0 {
		return nil
	}
	w := BadgeWidth(n)
	total := n*w + (n-1)*badgeGap
	startX := max(minMargin, (Width-total)/2)

	badges := make([]badge, 0, n)
	for i, e := range entries {
		s := styles[e.Key]
		labelSize := 48
		if len(e.Label) > 10 {
			labelSize = 34
		}
		badges = append(badges, badge{
			X:         startX + i*(w+badgeGap),
			Top:       badgeTop,
			Width:     w,
			Height:    badgeHeight,
			CenterX:   w / 2,
			Accent:    s.accent,
			Label:     html.EscapeString(e.Label),
			LabelSize: labelSize,
			Value:     html.EscapeString(e.Value),
			Subtitle:  html.EscapeString(s.subtitle),
		})
	}
	return badges
}

func validatePosterURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.NewRenderError("malformed poster url: " + err.Error())
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return errors.NewRenderError("poster url has no host")
		}
		return nil
	case "data":
		return nil
	default:
		return errors.NewRenderError("poster url has unsupported scheme " + strconv.Quote(u.Scheme))
	}
}
