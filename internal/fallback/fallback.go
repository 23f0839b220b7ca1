// Package fallback holds the bundled records and ratings served when the
// upstream services are unreachable. The table is read-only after Load and
// every accessor hands out deep copies.
package fallback

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/lepinkainen/posterratings/internal/ratings"
	"github.com/lepinkainen/posterratings/internal/stremio"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var bundled []byte

type document struct {
	Catalogs []catalogDef `yaml:"catalogs"`
	Entries  []entryDef   `yaml:"entries"`
}

type catalogDef struct {
	Type  string   `yaml:"type"`
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

type entryDef struct {
	Ratings ratings.Ratings `yaml:"ratings"`
	Meta    map[string]any  `yaml:"meta"`
}

// Record is one bundled record with its precomputed ratings.
type Record struct {
	Meta    *stremio.Meta
	Ratings *ratings.Ratings
}

// Table maps "type:id" to bundled records and "type:catalog" to catalogs.
// A nil *Table behaves as an empty table.
type Table struct {
	records  map[string]Record
	catalogs map[string]catalogDef
}

// Key builds the lookup key "type:id".
func Key(contentType, id string) string {
	return contentType + ":" + id
}

// Load parses the embedded table.
func Load() (*Table, error) {
	return Parse(bundled)
}

// MustLoad is Load that panics, for wiring the embedded table which is
// covered by tests.
func MustLoad() *Table {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// Parse builds a table from YAML.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse fallback table: %w", err)
	}

	t := &Table{
		records:  make(map[string]Record, len(doc.Entries)),
		catalogs: make(map[string]catalogDef, len(doc.Catalogs)),
	}

	for i, entry := range doc.Entries {
		// round-trip through JSON so unmodelled fields are kept on the record
		raw, err := json.Marshal(entry.Meta)
		if err != nil {
			return nil, fmt.Errorf("fallback entry %d: %w", i, err)
		}
		var meta stremio.Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("fallback entry %d: %w", i, err)
		}
		if meta.ID == "" || meta.Type == "" {
			return nil, fmt.Errorf("fallback entry %d: id and type are required", i)
		}
		t.records[Key(meta.Type, meta.ID)] = Record{
			Meta:    &meta,
			Ratings: ratings.Normalize(entry.Ratings),
		}
	}

	for _, def := range doc.Catalogs {
		for _, id := range def.Items {
			if _, ok := t.records[Key(def.Type, id)]; !ok {
				return nil, fmt.Errorf("fallback catalog %s/%s references unknown item %s", def.Type, def.ID, id)
			}
		}
		t.catalogs[Key(def.Type, def.ID)] = def
	}

	return t, nil
}

// Lookup returns a copy of the record stored under type:id.
func (t *Table) Lookup(contentType, id string) (Record, bool) {
	if t == nil || id == "" {
		return Record{}, false
	}
	rec, ok := t.records[Key(contentType, id)]
	if !ok {
		return Record{}, false
	}
	return Record{Meta: rec.Meta.Clone(), Ratings: copyRatings(rec.Ratings)}, true
}

// Ratings returns the precomputed ratings for type:id, or nil.
func (t *Table) Ratings(contentType, id string) *ratings.Ratings {
	if t == nil {
		return nil
	}
	rec, ok := t.records[Key(contentType, id)]
	if !ok {
		return nil
	}
	return copyRatings(rec.Ratings)
}

// Meta returns the fallback meta response. Meta is nil for unknown ids.
func (t *Table) Meta(contentType, id string) *stremio.MetaResponse {
	resp := &stremio.MetaResponse{CacheMaxAge: stremio.DefaultCacheMaxAge}
	if rec, ok := t.Lookup(contentType, id); ok {
		resp.Meta = rec.Meta
	}
	return resp
}

// Catalog returns the fallback catalog. Unknown catalogs are empty.
func (t *Table) Catalog(contentType, id string) *stremio.CatalogResponse {
	resp := &stremio.CatalogResponse{
		Metas:       []*stremio.Meta{},
		CacheMaxAge: stremio.DefaultCacheMaxAge,
	}
	if t == nil {
		return resp
	}
	def, ok := t.catalogs[Key(contentType, id)]
	if !ok {
		return resp
	}
	resp.Name = def.Name
	for _, item := range def.Items {
		if rec, ok := t.Lookup(contentType, item); ok {
			resp.Metas = append(resp.Metas, rec.Meta)
		}
	}
	return resp
}

// Len returns the number of bundled records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

func copyRatings(r *ratings.Ratings) *ratings.Ratings {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
