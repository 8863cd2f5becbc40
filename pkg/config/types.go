// pkg/config/types.go
package config

import "time"

// Config is the root configuration structure for forge.
type Config struct {
	Log       LogConfig       `description:"Logging configuration" koanf:"log"`
	Catalog   CatalogConfig   `description:"Module catalog configuration" koanf:"catalog"`
	Build     BuildConfig     `description:"Build orchestrator configuration" koanf:"build"`
	Workspace WorkspaceConfig `description:"Workspace configuration" koanf:"workspace"`
	Engine    EngineConfig    `description:"Engine configuration" koanf:"engine"`
	Output    OutputConfig    `description:"Report output configuration" koanf:"output"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level (trace, debug, info, warn, error)" koanf:"level"`
	Format string `description:"Log format: json | text" koanf:"format"`
}

// CatalogConfig selects where technique modules are loaded from.
type CatalogConfig struct {
	// Dirs are scanned for *.yaml manifests after the embedded catalog.
	Dirs     []string `description:"Extra catalog directories" koanf:"dirs"`
	Embedded bool     `description:"Load the embedded catalog" koanf:"embedded"`
}

// BuildConfig holds toolchain defaults for forge build.
type BuildConfig struct {
	Toolchain    string        `description:"Toolchain: cc | cmake" koanf:"toolchain"`
	Compiler     string        `description:"Compiler executable" koanf:"compiler"`
	CMake        string        `description:"cmake executable" koanf:"cmake"`
	Flags        []string      `description:"Extra compiler flags" koanf:"flags"`
	LibraryPaths []string      `description:"Library search paths" koanf:"library_paths"`
	IncludeDirs  []string      `description:"Include search paths" koanf:"include_dirs"`
	Timeout      time.Duration `description:"Build timeout, 0 disables" koanf:"timeout"`
	Static       bool          `description:"Link statically" koanf:"static"`
}

// WorkspaceConfig holds the workspace location.
type WorkspaceConfig struct {
	Dir string `description:"Workspace root directory" koanf:"dir"`
}

// EngineConfig tunes request processing.
type EngineConfig struct {
	Concurrency int `description:"Requests assembled concurrently by batch generation" koanf:"concurrency"`
}

// OutputConfig controls how commands print reports.
type OutputConfig struct {
	Format  string `description:"Report format: table | json" koanf:"format"`
	Quiet   bool   `description:"Suppress summaries" koanf:"quiet"`
	NoColor bool   `description:"Disable colored output" koanf:"no_color"`
}
