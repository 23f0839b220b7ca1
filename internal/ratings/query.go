package ratings

import (
	"regexp"
	"strconv"
	"strings"
)

var imdbIDPattern = regexp.MustCompile(`^tt\d+$`)

// IsIMDbID reports whether value looks like an IMDb title id (tt\d+).
func IsIMDbID(value string) bool {
	return imdbIDPattern.MatchString(value)
}

// Query describes a ratings lookup, either by IMDb id or by title and year.
type Query struct {
	IMDbID string
	Title  string
	Year   int
	Type   string
}

// CacheKey returns "imdb:<id>" or "title:<lower title>-<year|unknown>".
// It is empty when the query cannot be resolved at all.
func (q Query) CacheKey() string {
	if q.IMDbID != "" {
		return "imdb:" + q.IMDbID
	}
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return ""
	}
	year := "unknown"
	if q.Year > 0 {
		year = strconv.Itoa(q.Year)
	}
	return "title:" + strings.ToLower(title) + "-" + year
}

// IsZero reports whether the query has nothing to look up.
func (q Query) IsZero() bool {
	return q.CacheKey() == ""
}
