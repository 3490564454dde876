package config

// StorageConfig configures the shared key-value store. An empty database
// path selects the in-memory store (tests, throwaway watch sessions).
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DefaultStorageConfig returns the default store location.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{DatabasePath: "data/skipai.db"}
}
