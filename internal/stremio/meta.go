// Package stremio holds the wire types of the add-on protocol: catalog and
// meta records, their response envelopes and the add-on manifest.
package stremio

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Content types served by the add-on.
const (
	TypeMovie  = "movie"
	TypeSeries = "series"
)

// Meta is a single movie or series record as served by the catalog provider.
//
// The fields the add-on reads or rewrites are typed. Every other field of the
// upstream JSON object is kept as raw JSON and written back unchanged, so a
// record survives a decode/encode round trip without losing data.
type Meta struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Name          string          `json:"name,omitempty"`
	Poster        string          `json:"poster,omitempty"`
	Background    string          `json:"background,omitempty"`
	Description   string          `json:"description,omitempty"`
	ReleaseInfo   string          `json:"releaseInfo,omitempty"`
	Year          json.RawMessage `json:"year,omitempty"`
	Genres        []string        `json:"genres,omitempty"`
	IMDbID        string          `json:"imdb_id,omitempty"`
	IMDbIDAlt     string          `json:"imdbId,omitempty"`
	IMDbRating    json.RawMessage `json:"imdbRating,omitempty"`
	Extra         map[string]any  `json:"extra,omitempty"`
	BehaviorHints map[string]any  `json:"behaviorHints,omitempty"`

	rest map[string]json.RawMessage
}

// metaFields is Meta without its methods, used to avoid recursing into the
// custom (un)marshalers.
type metaFields Meta

var knownMetaKeys = map[string]struct{}{
	"id": {}, "type": {}, "name": {}, "poster": {}, "background": {},
	"description": {}, "releaseInfo": {}, "year": {}, "genres": {},
	"imdb_id": {}, "imdbId": {}, "imdbRating": {}, "extra": {}, "behaviorHints": {},
}

// UnmarshalJSON decodes the typed fields and keeps everything else verbatim.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var fields metaFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key := range knownMetaKeys {
		delete(all, key)
	}
	if len(all) > 0 {
		fields.rest = all
	}

	*m = Meta(fields)
	return nil
}

// MarshalJSON encodes the typed fields merged with the preserved unknown ones.
func (m Meta) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(metaFields(m))
	if err != nil {
		return nil, err
	}
	if len(m.rest) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(m.rest)+len(knownMetaKeys))
	for key, value := range m.rest {
		merged[key] = value
	}
	var typed map[string]json.RawMessage
	if err := json.Unmarshal(known, &typed); err != nil {
		return nil, err
	}
	for key, value := range typed {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// Field returns the raw JSON of a field the add-on does not model.
func (m *Meta) Field(key string) (json.RawMessage, bool) {
	value, ok := m.rest[key]
	return value, ok
}

// Clone returns a deep copy of the record.
func (m *Meta) Clone() *Meta {
	if m == nil {
		return nil
	}
	c := *m
	c.Year = cloneRaw(m.Year)
	c.IMDbRating = cloneRaw(m.IMDbRating)
	if m.Genres != nil {
		c.Genres = append([]string(nil), m.Genres...)
	}
	c.Extra = cloneMap(m.Extra)
	c.BehaviorHints = cloneMap(m.BehaviorHints)
	if m.rest != nil {
		c.rest = make(map[string]json.RawMessage, len(m.rest))
		for key, value := range m.rest {
			c.rest[key] = cloneRaw(value)
		}
	}
	return &c
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// YearValue returns the release year from "year" (number or string such as
// "2008–2013") or, failing that, the first four digit run of releaseInfo.
// It returns 0 when neither carries a year.
func (m *Meta) YearValue() int {
	if len(m.Year) > 0 {
		var n float64
		if err := json.Unmarshal(m.Year, &n); err == nil && n > 0 {
			return int(n)
		}
		var s string
		if err := json.Unmarshal(m.Year, &s); err == nil {
			if y := firstYear(s); y > 0 {
				return y
			}
		}
	}
	return firstYear(m.ReleaseInfo)
}

// RatingValue returns the record's own imdbRating as a string, "" if absent.
func (m *Meta) RatingValue() string {
	if len(m.IMDbRating) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.IMDbRating, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n float64
	if err := json.Unmarshal(m.IMDbRating, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

func firstYear(s string) int {
	match := yearPattern.FindString(s)
	if match == "" {
		return 0
	}
	y, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return y
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	case json.RawMessage:
		return cloneRaw(typed)
	default:
		return v
	}
}
