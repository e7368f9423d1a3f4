package driven

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type
// conversion. Keys use dot notation (e.g. "remote.url").
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value. Returns "" if the key is
	// absent or not a string.
	GetString(key string) string

	// GetInt retrieves an integer value. Returns 0 if the key is absent
	// or not an integer.
	GetInt(key string) int

	// GetBool retrieves a boolean value. Returns false if the key is
	// absent or not a boolean.
	GetBool(key string) bool

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
