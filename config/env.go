package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

var Env = map[string]string{
	"SONGDROP_LIBRARY": os.Getenv("SONGDROP_LIBRARY"),
	"SONGDROP_STAGING": os.Getenv("SONGDROP_STAGING"),
}

// GetLibraryLocation returns the permanent library root. Precedence: the
// user settings file, SONGDROP_LIBRARY, then an OS-appropriate default
// under the home directory.
func GetLibraryLocation() string {
	if userPath := getUserLibraryLocation(); userPath != "" {
		return userPath
	}

	if customPath := Env["SONGDROP_LIBRARY"]; customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if can't get home dir
		return filepath.Join(".", "library")
	}

	return filepath.Join(homeDir, "Music", "Songdrop")
}

// GetStagingLocation returns the private staging directory uploads are
// written to before import. Staged files never live inside the library
// root.
func GetStagingLocation() string {
	if customPath := Env["SONGDROP_STAGING"]; customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "staging")
	}

	return filepath.Join(homeDir, ".songdrop", "staging")
}

// GetNameLimit returns the cap applied to sanitized upload filenames,
// extension included.
func GetNameLimit() int {
	if v := os.Getenv("SONGDROP_NAME_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 128
}

// UserSettings represents the user's personal settings
type UserSettings struct {
	LibraryLocation string `json:"libraryLocation"`
}

// getSettingsFilePath returns the path to the settings file
func getSettingsFilePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".songdrop-settings.json")
}

// getUserLibraryLocation loads the user's preferred library location from settings file
func getUserLibraryLocation() string {
	settingsPath := getSettingsFilePath()

	// If file doesn't exist, return empty string to fall back to env vars
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		return ""
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return ""
	}

	var settings UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return ""
	}

	return settings.LibraryLocation
}
