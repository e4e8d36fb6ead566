// Package config locates the code-edit configuration directory and loads
// the YAML settings files kept there and in the working directory.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the code-edit configuration directory.
//
// Resolution:
//   - $CODE_EDIT_CONFIG_HOME if set (explicit override)
//   - $XDG_CONFIG_HOME/code-edit if set (respects XDG on any platform)
//   - %AppData%/code-edit on Windows
//   - ~/.config/code-edit on macOS and Linux
func Dir() string {
	// Explicit override
	if dir := os.Getenv("CODE_EDIT_CONFIG_HOME"); dir != "" {
		return dir
	}

	// XDG override (works on any platform)
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "code-edit")
	}

	// Windows: use AppData
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "code-edit")
		}
	}

	// macOS and Linux: ~/.config/code-edit
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "code-edit")
}
