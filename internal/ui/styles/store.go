package styles

import "fmt"

// SettingTheme is the settings key holding the theme name
const SettingTheme = "theme"

// Settings is the key/value store the theme preference lives in
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// ThemeStore loads, saves and toggles the theme preference
type ThemeStore struct {
	settings Settings
	fallback string
}

// NewThemeStore returns a store. fallback is used when nothing is saved.
func NewThemeStore(settings Settings, fallback string) *ThemeStore {
	return &ThemeStore{settings: settings, fallback: fallback}
}

// Load returns the saved theme, or the fallback
func (s *ThemeStore) Load() Theme {
	if s.settings != nil {
		if name, err := s.settings.GetSetting(SettingTheme); err == nil && name != "" {
			return ThemeByName(name)
		}
	}
	return ThemeByName(s.fallback)
}

// Save persists the theme name
func (s *ThemeStore) Save(t Theme) error {
	if s.settings == nil {
		return nil
	}
	if err := s.settings.SetSetting(SettingTheme, t.Name); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// Toggle switches between dark and light and persists the result
func (s *ThemeStore) Toggle() (Theme, error) {
	next := Light
	if s.Load().Name == Light.Name {
		next = Dark
	}
	return next, s.Save(next)
}
