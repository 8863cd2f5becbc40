// Package paths resolves the per-user directories forge reads and writes.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName     = "forge"
	appNameDisp = "Forge"
)

// userDir picks $xdgVar/forge when set, %AppData%\Forge on Windows next, and
// finally ~/<fallback...>/forge.
func userDir(xdgVar string, fallback ...string) string {
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if runtime.GOOS == "windows" {
		if base := os.Getenv("AppData"); base != "" {
			return filepath.Join(base, appNameDisp)
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(append(append([]string{home}, fallback...), appName)...)
}

// ConfigDir returns the config directory.
// Order: XDG_CONFIG_HOME/forge, %AppData%\Forge, ~/.config/forge.
func ConfigDir() string {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the data directory.
// Order: XDG_DATA_HOME/forge, %AppData%\Forge, ~/.local/share/forge.
func DataDir() string {
	return userDir("XDG_DATA_HOME", ".local", "share")
}
