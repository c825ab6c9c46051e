// Package storage persists per-restaurant scrape results as JSON files,
// one file per restaurant, which the aggregator later sweeps into a CSV.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/saratoga-data/menuharvest/models"
)

// WriteMenu writes items to <dir>/<slug>_menu.json, creating dir as needed.
// An empty item list still produces a file so reruns overwrite stale results.
func WriteMenu(dir, slug string, items []models.Item) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if items == nil {
		items = []models.Item{}
	}

	path := filepath.Join(dir, slug+"_menu.json")
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal menu items: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	slog.Info("menu written", "path", path, "items", len(items))
	return path, nil
}
