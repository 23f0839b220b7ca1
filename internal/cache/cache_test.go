package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestData struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	NotFound bool   `json:"notFound,omitempty"`
}

// stores returns one fresh instance of every backend so each test runs
// against both.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendSQLite: sqliteStore,
	}
}

func TestStore_GetSetClear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := store.Get("imdb:tt1")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, store.Set("imdb:tt1", `{"id":1}`))
			require.NoError(t, store.Set("imdb:tt1", `{"id":2}`))

			data, found, err := store.Get("imdb:tt1")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, `{"id":2}`, data)

			n, err := store.Len()
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, store.Clear())
			_, found, err = store.Get("imdb:tt1")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestGetOrFetch_CacheMissThenHit(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			fetchCalled := 0
			fetch := func() (TestData, error) {
				fetchCalled++
				return TestData{ID: 2, Name: "Fetched"}, nil
			}

			result, fromCache, err := GetOrFetch(store, "key", fetch)
			require.NoError(t, err)
			assert.False(t, fromCache)
			assert.Equal(t, TestData{ID: 2, Name: "Fetched"}, result)

			result, fromCache, err = GetOrFetch(store, "key", fetch)
			require.NoError(t, err)
			assert.True(t, fromCache)
			assert.Equal(t, TestData{ID: 2, Name: "Fetched"}, result)
			assert.Equal(t, 1, fetchCalled)

			_, _, err = GetOrFetch(store, "other", fetch)
			require.NoError(t, err)
			assert.Equal(t, 2, fetchCalled)
		})
	}
}

func TestGetOrFetch_NegativeResultIsCached(t *testing.T) {
	store := NewMemoryStore()
	fetchCalled := 0
	fetch := func() (*TestData, error) {
		fetchCalled++
		return &TestData{NotFound: true}, nil
	}

	for range 3 {
		result, _, err := GetOrFetch(store, "title:missing-unknown", fetch)
		require.NoError(t, err)
		assert.True(t, result.NotFound)
	}
	assert.Equal(t, 1, fetchCalled)
}

func TestGetOrFetch_FetchErrorIsNotCached(t *testing.T) {
	store := NewMemoryStore()
	fetchErr := errors.New("fetch failed")

	result, fromCache, err := GetOrFetch(store, "key", func() (TestData, error) {
		return TestData{}, fetchErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
	assert.False(t, fromCache)
	assert.Zero(t, result)

	n, _ := store.Len()
	assert.Equal(t, 0, n)
}

func TestGetOrFetch_CorruptEntryIsRefetched(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set("key", "{not json"))

	result, fromCache, err := GetOrFetch(store, "key", func() (TestData, error) {
		return TestData{ID: 3}, nil
	})
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 3, result.ID)

	data, _, _ := store.Get("key")
	assert.JSONEq(t, `{"id":3,"name":""}`, data)
}

func TestGetOrFetch_NilStoreFetchesDirectly(t *testing.T) {
	calls := 0
	for range 2 {
		_, fromCache, err := GetOrFetch[TestData](nil, "key", func() (TestData, error) {
			calls++
			return TestData{}, nil
		})
		require.NoError(t, err)
		assert.False(t, fromCache)
	}
	assert.Equal(t, 2, calls)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := range 16 {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := "key"
					if i%2 == 0 {
						key = "other"
					}
					_ = store.Set(key, `{}`)
					_, _, _ = store.Get(key)
				}(i)
			}
			wg.Wait()

			n, err := store.Len()
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestNewBackend(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = New(BackendSQLite)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	_ = store.(*SQLiteStore).Close()

	_, err = New("redis")
	assert.Error(t, err)
}
