// Package config resolves the viewer's run configuration from defaults,
// an optional YAML settings file and command-line options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultIBL is the IBL directory relative to the executable's root path.
const DefaultIBL = "envs/venetian_crossroads"

// AppTitle is the default window title.
const AppTitle = "gltfview"

// Backend selects the rendering API.
type Backend int

const (
	BackendOpenGL Backend = iota
	BackendVulkan
	BackendMetal
)

// String returns the option spelling of the backend.
func (b Backend) String() string {
	switch b {
	case BackendOpenGL:
		return "opengl"
	case BackendVulkan:
		return "vulkan"
	case BackendMetal:
		return "metal"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend maps an option value to a Backend. ok is false for unrecognized values.
func ParseBackend(s string) (b Backend, ok bool) {
	switch s {
	case "opengl":
		return BackendOpenGL, true
	case "vulkan":
		return BackendVulkan, true
	case "metal":
		return BackendMetal, true
	}
	return BackendOpenGL, false
}

// MaterialSource selects how the asset loader obtains material templates.
type MaterialSource int

const (
	// GenerateShaders builds one template per distinct material feature set.
	GenerateShaders MaterialSource = iota
	// LoadUbershaders uses a small fixed set of prebuilt templates.
	LoadUbershaders
)

// String returns a human-readable material source name.
func (m MaterialSource) String() string {
	switch m {
	case GenerateShaders:
		return "generate"
	case LoadUbershaders:
		return "ubershader"
	default:
		return fmt.Sprintf("MaterialSource(%d)", int(m))
	}
}

// RunConfig is the immutable configuration of one viewer run.
type RunConfig struct {
	Title          string
	Backend        Backend
	IBLDirectory   string
	MaterialSource MaterialSource
}

// Settings holds the values that may come from the YAML settings file.
type Settings struct {
	Window   WindowSettings   `yaml:"window"`
	Logging  LoggingSettings  `yaml:"logging"`
	Defaults DefaultsSettings `yaml:"defaults"`
}

// WindowSettings holds the host window size.
type WindowSettings struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// LoggingSettings holds logging settings.
type LoggingSettings struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// DefaultsSettings overrides built-in run defaults; CLI options still win.
type DefaultsSettings struct {
	API        string `yaml:"api"`
	IBL        string `yaml:"ibl"`
	Ubershader bool   `yaml:"ubershader"`
}

// DefaultSettings returns Settings with sensible default values.
func DefaultSettings() *Settings {
	return &Settings{
		Window: WindowSettings{
			Width:  1280,
			Height: 800,
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// DefaultRunConfig returns the run configuration used when no option overrides it.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Title:          AppTitle,
		Backend:        BackendOpenGL,
		IBLDirectory:   filepath.Join(RootPath(), DefaultIBL),
		MaterialSource: GenerateShaders,
	}
}

// RootPath returns the directory holding the running executable, or the
// working directory when it cannot be determined.
func RootPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
