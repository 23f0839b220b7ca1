package stremio

// Manifest describes the add-on to Stremio clients.
type Manifest struct {
	ID            string            `json:"id"`
	Version       string            `json:"version"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Resources     []string          `json:"resources"`
	Types         []string          `json:"types"`
	Catalogs      []ManifestCatalog `json:"catalogs"`
	IDPrefixes    []string          `json:"idPrefixes"`
	BehaviorHints ManifestHints     `json:"behaviorHints"`
	ContactEmail  string            `json:"contactEmail,omitempty"`
	Background    string            `json:"background,omitempty"`
}

// ManifestCatalog is one catalog advertised by the manifest.
type ManifestCatalog struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ManifestHints carries the configuration hints of the manifest.
type ManifestHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}
