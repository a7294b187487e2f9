package config

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// UserConfig holds settings the user can change at runtime, persisted as
// JSON in the config directory so they survive restarts.
type UserConfig struct {
	// UpdateLibrariesPeriodically re-enqueues a sync job for every library
	// on the given interval. Disabled when false.
	UpdateLibrariesPeriodically bool `json:"update_libraries_periodically"`
	SyncIntervalMinutes         int  `json:"sync_interval_minutes"`
	// ImportComicInfoMetadata seeds scraped metadata from ComicInfo.xml
	// when a comic is first added to the library.
	ImportComicInfoMetadata bool `json:"import_comic_info_metadata"`
}

func userConfigFilePath(configDir string) string {
	return filepath.Join(configDir, "config.json")
}

// DefaultUserConfig is what a fresh install runs with until the user saves
// their own settings.
func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		UpdateLibrariesPeriodically: false,
		SyncIntervalMinutes:         60,
		ImportComicInfoMetadata:     true,
	}
}

func (cfg *Config) LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(userConfigFilePath(cfg.ConfigDirectory))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultUserConfig(), nil
		}
		return nil, errors.WithStack(err)
	}

	userConfig := DefaultUserConfig()
	if err := json.Unmarshal(data, userConfig); err != nil {
		return nil, errors.WithStack(err)
	}

	return userConfig, nil
}

func (cfg *Config) SaveUserConfig(userConfig *UserConfig) error {
	path := userConfigFilePath(cfg.ConfigDirectory)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithStack(err)
	}

	data, err := json.MarshalIndent(userConfig, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	err = os.WriteFile(path, data, 0644) //nolint:gosec
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
