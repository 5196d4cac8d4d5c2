package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/jonathan/bullet-ranker/internal/settings"
)

// defaultSettingsPath is where the file-backed settings store lives when no
// database is configured.
func defaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".bullet-ranker", "settings.json")
	}
	return filepath.Join(home, ".bullet-ranker", "settings.json")
}

// openStore picks the settings backend: Postgres when a database URL is
// configured, the JSON file otherwise. The returned closer is always safe to
// call.
func openStore(ctx context.Context, settingsFile, databaseURL string) (settings.Store, func(), error) {
	if databaseURL == "" {
		databaseURL = viper.GetString("database-url")
	}
	if databaseURL != "" {
		store, err := settings.ConnectPostgres(ctx, databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting settings database: %w", err)
		}
		return store, store.Close, nil
	}

	if settingsFile == "" {
		settingsFile = defaultSettingsPath()
	}
	if err := os.MkdirAll(filepath.Dir(settingsFile), 0o700); err != nil {
		return nil, nil, fmt.Errorf("creating settings directory: %w", err)
	}
	store, err := settings.NewFileStore(settingsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("opening settings file: %w", err)
	}
	return store, func() {}, nil
}
