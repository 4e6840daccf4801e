package config

import (
	"os"
	"path/filepath"
)

// Locate resolves the configuration file path: an explicit path wins, then DefaultFileName in
// projectDir if it exists there, then DefaultFileName in the user's home directory.
func Locate(explicit, projectDir string) string {
	if explicit != "" {
		return explicit
	}
	if projectDir != "" {
		p := filepath.Join(projectDir, DefaultFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}
