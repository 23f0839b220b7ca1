package cache

// RatingsTable is the table backing the SQLite ratings store.
const RatingsTable = "ratings_cache"

// RatingsCacheSchema defines the schema for the ratings cache.
// cache_key is "imdb:<id>" or "title:<title>-<year>".
const RatingsCacheSchema = `
CREATE TABLE IF NOT EXISTS ratings_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ratings_cached_at ON ratings_cache(cached_at);
`

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	RatingsTable: true,
}
