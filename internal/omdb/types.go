package omdb

import "github.com/lepinkainen/posterratings/internal/ratings"

// Response is the subset of the OMDb title payload the add-on reads.
type Response struct {
	Title       string   `json:"Title"`
	Year        string   `json:"Year"`
	ImdbID      string   `json:"imdbID"`
	Type        string   `json:"Type"`
	ImdbRating  string   `json:"imdbRating"`
	Metascore   string   `json:"Metascore"`
	TomatoMeter string   `json:"tomatoMeter"`
	Ratings     []Rating `json:"Ratings"`
	Response    string   `json:"Response"` // "True" or "False"
	Error       string   `json:"Error"`    // Present if Response is "False"
}

// Rating represents a rating from a specific source
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// Named sources in the Ratings list.
const (
	SourceIMDb           = "Internet Movie Database"
	SourceRottenTomatoes = "Rotten Tomatoes"
	SourceMetacritic     = "Metacritic"
)

// cachedRatings is the value stored in the ratings cache. NotFound marks a
// cached absent result so failed lookups are not repeated.
type cachedRatings struct {
	Ratings  *ratings.Ratings `json:"ratings,omitempty"`
	NotFound bool             `json:"notFound,omitempty"`
}
