package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saratoga-data/menuharvest/models"
)

func TestWriteMenu(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	items := []models.Item{
		{Name: "Latte", Price: "$5", RestaurantName: "Alpha Cafe", RestaurantURL: "https://alpha.example.com"},
	}

	path, err := WriteMenu(dir, "alphacafe", items)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "alphacafe_menu.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []models.Item
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, items, got)
}

func TestWriteMenuEmpty(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteMenu(dir, "empty", nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}
