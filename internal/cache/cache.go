// Package cache provides the process-lifetime cache used for ratings lookups.
// Entries have no TTL and are only dropped by an explicit Clear.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// FetchFunc represents a function that fetches data from an external source
type FetchFunc[T any] func() (T, error)

// GetOrFetch retrieves data from store or fetches it using the provided function.
// The fetched value is stored as JSON under cacheKey. Errors from fetchFunc are
// returned and nothing is stored, so callers that want negative caching return
// a "not found" value instead of an error.
func GetOrFetch[T any](store Store, cacheKey string, fetchFunc FetchFunc[T]) (T, bool, error) {
	var zero T

	if store == nil {
		data, err := fetchFunc()
		return data, false, err
	}

	cached, found, err := store.Get(cacheKey)
	if err != nil {
		slog.Warn("Failed to read cache, fetching directly", "key", cacheKey, "error", err)
	}
	if err == nil && found {
		var result T
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			slog.Debug("Cache hit", "key", cacheKey)
			return result, true, nil
		}
		slog.Warn("Failed to unmarshal cached data, will refetch", "key", cacheKey, "error", err)
	}

	slog.Debug("Cache miss, fetching data", "key", cacheKey)
	data, err := fetchFunc()
	if err != nil {
		return zero, false, fmt.Errorf("failed to fetch data: %w", err)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to marshal data for caching", "key", cacheKey, "error", err)
		return data, false, nil
	}
	if err := store.Set(cacheKey, string(jsonData)); err != nil {
		// caching failure must not fail the lookup
		slog.Warn("Failed to cache data", "key", cacheKey, "error", err)
	}

	return data, false, nil
}
