package driven

// ConfigStore persists user settings as flat dotted keys ("storage.backend").
// Values keep the type they were decoded with; interpretation is left to
// the settings service.
type ConfigStore interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (any, bool)

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Unset removes a key and persists the change. Removing a missing key
	// is not an error.
	Unset(key string) error

	// Load re-reads the backing storage.
	Load() error

	// Path returns where the configuration lives, or "" when it is not
	// file-backed.
	Path() string
}
