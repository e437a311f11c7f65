package driving

import "github.com/custodia-labs/vidrag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with defaults and
	// environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Set persists a single setting by its dotted key.
	Set(key, value string) error

	// Unset removes a stored key so it falls back to its default.
	Unset(key string) error

	// ConfigPath returns where settings are persisted, or "" for in-memory stores.
	ConfigPath() string

	// Keys returns every supported setting key in display order.
	Keys() []string

	// Values returns every setting with its effective value and where it came from.
	Values() ([]domain.SettingValue, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
