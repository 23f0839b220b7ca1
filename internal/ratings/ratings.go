// Package ratings holds the normalized ratings bundle shared by the ratings
// client, the enrichment engine and the poster overlay renderer.
package ratings

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Ratings is a normalized ratings bundle. Values are display strings:
// IMDb "8.8", Rotten Tomatoes "87%", Metacritic "74/100".
// A nil *Ratings means "no ratings"; a non-nil bundle always has a field set.
type Ratings struct {
	IMDb           string `json:"imdb,omitempty" yaml:"imdb,omitempty"`
	RottenTomatoes string `json:"rottenTomatoes,omitempty" yaml:"rottenTomatoes,omitempty"`
	Metacritic     string `json:"metacritic,omitempty" yaml:"metacritic,omitempty"`
}

// Key identifies a ratings source in fixed display order.
type Key string

const (
	KeyIMDb           Key = "imdb"
	KeyRottenTomatoes Key = "rottenTomatoes"
	KeyMetacritic     Key = "metacritic"
)

// Entry is a single present rating with its display label.
type Entry struct {
	Key   Key
	Label string
	Value string
}

// IsEmpty reports whether no rating is present.
func (r *Ratings) IsEmpty() bool {
	return r == nil || (r.IMDb == "" && r.RottenTomatoes == "" && r.Metacritic == "")
}

// Entries returns the present ratings in the order imdb, rottenTomatoes, metacritic.
func (r *Ratings) Entries() []Entry {
	if r == nil {
		return nil
	}
	entries := make([]Entry, 0, 3)
	if r.IMDb != "" {
		entries = append(entries, Entry{Key: KeyIMDb, Label: "IMDb", Value: r.IMDb})
	}
	if r.RottenTomatoes != "" {
		entries = append(entries, Entry{Key: KeyRottenTomatoes, Label: "Rotten Tomatoes", Value: r.RottenTomatoes})
	}
	if r.Metacritic != "" {
		entries = append(entries, Entry{Key: KeyMetacritic, Label: "Metacritic", Value: r.Metacritic})
	}
	return entries
}

// Normalize formats every present value and drops empty or "N/A" ones.
// It returns nil when nothing is left, so an empty bundle never escapes.
func Normalize(raw Ratings) *Ratings {
	normalized := Ratings{}
	if Present(raw.IMDb) {
		normalized.IMDb = FormatIMDb(raw.IMDb)
	}
	if Present(raw.RottenTomatoes) {
		normalized.RottenTomatoes = FormatPercent(raw.RottenTomatoes)
	}
	if Present(raw.Metacritic) {
		normalized.Metacritic = FormatMetacritic(raw.Metacritic)
	}
	if normalized.IsEmpty() {
		return nil
	}
	return &normalized
}

// Present reports whether a provider value carries a score, i.e. it is
// neither blank nor "N/A".
func Present(value string) bool {
	v := strings.TrimSpace(value)
	return v != "" && !strings.EqualFold(v, "N/A")
}

var leadingNumber = regexp.MustCompile(`^\s*[-+]?(\d+(\.\d*)?|\.\d+)`)

// ParseLeadingFloat parses the numeric prefix of value ("8.8/10" -> 8.8).
func ParseLeadingFloat(value string) (float64, bool) {
	match := leadingNumber.FindString(value)
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(match), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FormatIMDb renders a 0-10 score with one decimal place ("8" -> "8.0").
// Non-numeric values are passed through unchanged.
func FormatIMDb(value string) string {
	f, ok := ParseLeadingFloat(value)
	if !ok {
		return value
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// FormatPercent renders a percentage score ("87" -> "87%"). Values already
// ending in "%" are kept as they are.
func FormatPercent(value string) string {
	if strings.HasSuffix(value, "%") {
		return value
	}
	f, ok := ParseLeadingFloat(value)
	if !ok {
		return value
	}
	return strconv.FormatFloat(f, 'f', -1, 64) + "%"
}

// FormatMetacritic renders a 0-100 score as "n/100" using its integer part.
func FormatMetacritic(value string) string {
	f, ok := ParseLeadingFloat(value)
	if !ok {
		return value
	}
	return fmt.Sprintf("%d/100", int(f))
}
