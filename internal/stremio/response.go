package stremio

// DefaultCacheMaxAge is used when the catalog provider does not send one.
const DefaultCacheMaxAge = 86400

// CatalogResponse is the body of GET /catalog/{type}/{id}.json.
type CatalogResponse struct {
	Metas       []*Meta `json:"metas"`
	CacheMaxAge int     `json:"cacheMaxAge,omitempty"`
	Name        string  `json:"name,omitempty"`
	Poster      string  `json:"poster,omitempty"`
}

// MetaResponse is the body of GET /meta/{type}/{id}.json.
type MetaResponse struct {
	Meta        *Meta `json:"meta"`
	CacheMaxAge int   `json:"cacheMaxAge,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
