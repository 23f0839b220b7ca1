package overlay

import "encoding/base64"

const backgroundSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1200 600">
  <defs>
    <linearGradient id="grad" x1="0" y1="0" x2="1" y2="1">
      <stop offset="0%" stop-color="#1f1b2e" />
      <stop offset="50%" stop-color="#302244" />
      <stop offset="100%" stop-color="#121212" />
    </linearGradient>
  </defs>
  <rect width="1200" height="600" fill="url(#grad)" />
  <text x="50%" y="40%" font-family="'Segoe UI', sans-serif" font-size="90" fill="#f5c518" text-anchor="middle">Poster Ratings Overlay</text>
  <text x="50%" y="58%" font-family="'Segoe UI', sans-serif" font-size="48" fill="#ffffff" text-anchor="middle">IMDb · Rotten Tomatoes · Metacritic</text>
</svg>`

var manifestBackground = DataURIPrefix + base64.StdEncoding.EncodeToString([]byte(backgroundSVG))

// ManifestBackground returns the add-on background image as a data URI.
func ManifestBackground() string {
	return manifestBackground
}
