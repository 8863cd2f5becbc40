// Package workspace prepares the directory tree forge writes builds into.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vulntor/forge/pkg/paths"
)

// EnvVar overrides the default workspace root.
const EnvVar = "FORGE_WORKSPACE_DIR"

const (
	BuildsDir    = "builds"
	ArtifactsDir = "artifacts"
)

var defaultSubdirs = []string{BuildsDir, ArtifactsDir}

// Prepare ensures the workspace root and required subdirectories exist.
// It returns the absolute path to the workspace root that was prepared.
func Prepare(root string) (string, error) {
	if root == "" {
		root = DefaultRoot()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}

	if err := os.MkdirAll(absRoot, 0o750); err != nil {
		return "", fmt.Errorf("create workspace root: %w", err)
	}

	for _, sub := range defaultSubdirs {
		if err := os.MkdirAll(filepath.Join(absRoot, sub), 0o750); err != nil {
			return "", fmt.Errorf("create workspace subdir %q: %w", sub, err)
		}
	}

	return absRoot, nil
}

// DefaultRoot returns $FORGE_WORKSPACE_DIR or the per-user data directory.
func DefaultRoot() string {
	if dir := os.Getenv(EnvVar); dir != "" {
		return dir
	}
	return paths.DataDir()
}

// Builds returns the build directory of the workspace at root.
func Builds(root string) string { return filepath.Join(root, BuildsDir) }

// Artifacts returns the artifact directory of the workspace at root.
func Artifacts(root string) string { return filepath.Join(root, ArtifactsDir) }

// Subdirectories returns the list of default workspace subdirectories.
func Subdirectories() []string {
	subs := make([]string, len(defaultSubdirs))
	copy(subs, defaultSubdirs)
	return subs
}
