package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Search order: extra → user → system → cwd (first match wins for lookups).

// GetExtraTemplateDirs returns extra template directories from config or environment.
// Environment variable PSQS_TEMPLATE_DIRS uses colon-separated paths (Unix convention).
// Config file uses YAML array format.
func GetExtraTemplateDirs() []string {
	if envDirs := os.Getenv("PSQS_TEMPLATE_DIRS"); envDirs != "" {
		var dirs []string
		for _, dir := range strings.Split(envDirs, ":") {
			dir = strings.TrimSpace(dir)
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
		if len(dirs) > 0 {
			return dirs
		}
	}

	return viper.GetStringSlice("template_dirs")
}

// GetUserDataDir returns the user's data directory following XDG spec.
// Returns $XDG_DATA_HOME/psqs or ~/.local/share/psqs
func GetUserDataDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "psqs")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "psqs")
	}

	return ""
}

// GetSystemDataDir returns the system-wide data directory.
// Checks XDG_DATA_DIRS first, then standard paths.
func GetSystemDataDir() string {
	if dataDirs := os.Getenv("XDG_DATA_DIRS"); dataDirs != "" {
		for _, dir := range strings.Split(dataDirs, ":") {
			if dir == "" {
				continue
			}
			candidate := filepath.Join(dir, "psqs")
			if stat, err := os.Stat(candidate); err == nil && stat.IsDir() {
				return candidate
			}
		}
	}

	for _, dir := range []string{"/usr/local/share/psqs", "/usr/share/psqs"} {
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			return dir
		}
	}

	return ""
}

// TemplateSearchPaths lists the directories searched for program templates
// referenced by name from a manifest.
func TemplateSearchPaths() []string {
	var paths []string
	paths = append(paths, GetExtraTemplateDirs()...)
	if dir := GetUserDataDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "templates"))
	}
	if dir := GetSystemDataDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "templates"))
	}
	paths = append(paths, ".")
	return paths
}

// FindTemplate resolves a template name to a file. Absolute paths and paths
// relative to baseDir are tried first, then every template search path with
// and without a ".tmpl" suffix.
func FindTemplate(name, baseDir string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("template not found: %s", name)
		}
		return name, nil
	}

	if baseDir != "" {
		candidate := filepath.Join(baseDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	for _, dir := range TemplateSearchPaths() {
		for _, candidate := range []string{filepath.Join(dir, name), filepath.Join(dir, name+".tmpl")} {
			if stat, err := os.Stat(candidate); err == nil && !stat.IsDir() {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("template not found: %s (searched: %v)", name, TemplateSearchPaths())
}
