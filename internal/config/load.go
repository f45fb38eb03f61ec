package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// UnrecognizedBackendWarning is reported when an api value is not one of the known backends.
const UnrecognizedBackendWarning = "Unrecognized backend. Must be 'opengl'|'vulkan'|'metal'."

// LoadSettings loads settings with priority: defaults < file. An explicit
// path must exist; otherwise the standard locations are searched.
func LoadSettings(explicitPath string) (*Settings, error) {
	s := DefaultSettings()

	path := explicitPath
	if path == "" {
		path = findSettingsFile()
	}
	if path == "" {
		return s, nil
	}

	if err := loadFromFile(s, path); err != nil {
		return nil, fmt.Errorf("loading settings from %s: %w", path, err)
	}
	return s, nil
}

// Resolve merges built-in defaults, the settings file defaults and the
// parsed options into a RunConfig. Unrecognized api values, including an
// explicitly empty one, are returned as warnings and leave the backend unchanged.
func Resolve(s *Settings, o Options) (RunConfig, []string) {
	cfg := DefaultRunConfig()
	var warnings []string

	applyAPI := func(api string, given bool) {
		if !given {
			return
		}
		b, ok := ParseBackend(api)
		if !ok {
			warnings = append(warnings, UnrecognizedBackendWarning)
			return
		}
		cfg.Backend = b
	}

	if s != nil {
		applyAPI(s.Defaults.API, s.Defaults.API != "")
		if s.Defaults.IBL != "" {
			cfg.IBLDirectory = s.Defaults.IBL
		}
		if s.Defaults.Ubershader {
			cfg.MaterialSource = LoadUbershaders
		}
	}

	applyAPI(o.API, o.APIGiven || o.API != "")
	if o.IBL != "" {
		cfg.IBLDirectory = o.IBL
	}
	if o.Ubershader {
		cfg.MaterialSource = LoadUbershaders
	}

	return cfg, warnings
}

// ApplyOptions applies option overrides that affect settings rather than the run.
func (s *Settings) ApplyOptions(o Options) {
	if o.Debug {
		s.Logging.Level = "debug"
	}
}

func findSettingsFile() string {
	candidates := []string{
		"./gltfview.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate settings directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "gltfview")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "gltfview")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "gltfview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "gltfview")
	}
}

// loadFromFile loads settings from a YAML file, merging with existing values.
func loadFromFile(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, s)
}
