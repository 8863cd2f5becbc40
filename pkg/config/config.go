// pkg/config/config.go
package config

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex
}

// NewManager creates a new Manager with an empty koanf instance.
func NewManager() *Manager {
	return &Manager{koanfInstance: koanf.New(".")}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Catalog: CatalogConfig{
			Embedded: true,
		},
		Build: BuildConfig{
			Toolchain: "cc",
			CMake:     "cmake",
			Timeout:   5 * time.Minute,
		},
		Engine: EngineConfig{
			Concurrency: 4,
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// Load loads configuration from the default sources: defaults, the config
// file, FORGE_* environment variables and flags.
func (m *Manager) Load(flags *pflag.FlagSet, configFilePath string) error {
	return m.LoadWithSources(DefaultSources(configFilePath, flags))
}

// LoadWithSources loads sources in ascending priority order and unmarshals
// the merged result.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := slices.Clone(sources)
	slices.SortStableFunc(ordered, func(a, b ConfigSource) int {
		return a.Priority() - b.Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := k.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}
	if err := validate(newCfg); err != nil {
		return err
	}

	m.koanfInstance = k
	m.currentConfig = newCfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := m.currentConfig
	cfg.Catalog.Dirs = slices.Clone(cfg.Catalog.Dirs)
	cfg.Build.Flags = slices.Clone(cfg.Build.Flags)
	cfg.Build.LibraryPaths = slices.Clone(cfg.Build.LibraryPaths)
	cfg.Build.IncludeDirs = slices.Clone(cfg.Build.IncludeDirs)
	return cfg
}

// Koanf returns the merged koanf instance of the last successful load.
func (m *Manager) Koanf() *koanf.Koanf {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance
}

func validate(cfg Config) error {
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	switch cfg.Build.Toolchain {
	case "cc", "cmake":
	default:
		return fmt.Errorf("build.toolchain must be cc or cmake, got %q", cfg.Build.Toolchain)
	}
	if cfg.Build.Timeout < 0 {
		return fmt.Errorf("build.timeout must not be negative")
	}
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be at least 1, got %d", cfg.Engine.Concurrency)
	}
	return nil
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map for koanf's
// confmap.Provider so every key is known before flags are applied.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,

		"catalog.dirs":     def.Catalog.Dirs,
		"catalog.embedded": def.Catalog.Embedded,

		"build.toolchain":     def.Build.Toolchain,
		"build.compiler":      def.Build.Compiler,
		"build.cmake":         def.Build.CMake,
		"build.flags":         def.Build.Flags,
		"build.library_paths": def.Build.LibraryPaths,
		"build.include_dirs":  def.Build.IncludeDirs,
		"build.timeout":       def.Build.Timeout,
		"build.static":        def.Build.Static,

		"workspace.dir": def.Workspace.Dir,

		"engine.concurrency": def.Engine.Concurrency,

		"output.format":   def.Output.Format,
		"output.quiet":    def.Output.Quiet,
		"output.no_color": def.Output.NoColor,
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-format":  "log.format",
	"catalog-dir": "catalog.dirs",
	"embedded":    "catalog.embedded",
	"toolchain":   "build.toolchain",
	"compiler":    "build.compiler",
	"cmake":       "build.cmake",
	"flag":        "build.flags",
	"lib-path":    "build.library_paths",
	"include-dir": "build.include_dirs",
	"timeout":     "build.timeout",
	"static":      "build.static",
	"workspace":   "workspace.dir",
	"concurrency": "engine.concurrency",
	"output":      "output.format",
	"quiet":       "output.quiet",
	"no-color":    "output.no_color",
}

// BindFlags defines the global configuration flags.
func BindFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()

	flags.String("log-format", defaults.Log.Format, "Log format (text, json)")
	flags.StringSlice("catalog-dir", nil, "Additional catalog directory (repeatable)")
	flags.Bool("embedded", defaults.Catalog.Embedded, "Load the embedded catalog")
	flags.String("workspace", "", "Workspace root directory")
	flags.String("output", defaults.Output.Format, "Output format for reports (table, json)")
	flags.BoolP("quiet", "q", defaults.Output.Quiet, "Suppress summaries")
	flags.Bool("no-color", defaults.Output.NoColor, "Disable colored output")
}

// BindBuildFlags defines the toolchain flags used by forge build.
func BindBuildFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()

	flags.String("toolchain", defaults.Build.Toolchain, "Toolchain (cc, cmake)")
	flags.String("compiler", "", "Compiler executable")
	flags.String("cmake", defaults.Build.CMake, "cmake executable")
	flags.StringArray("flag", nil, "Extra compiler flag (repeatable)")
	flags.StringSlice("lib-path", nil, "Library search path (repeatable)")
	flags.StringSlice("include-dir", nil, "Include search path (repeatable)")
	flags.Duration("timeout", defaults.Build.Timeout, "Build timeout (0 disables)")
	flags.Bool("static", defaults.Build.Static, "Link statically")
}
