package aggregate

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saratoga-data/menuharvest/models"
)

func writeJSON(t *testing.T, dir, name string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o644))
}

func TestRunMergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()

	writeJSON(t, dir, "bbb_menu.json", []map[string]string{
		{
			"name":            "Reuben",
			"price":           "$16",
			"section":         "Sandwiches",
			"menu_type":       "Lunch",
			"restaurant_name": "Beta Bistro",
			"restaurant_url":  "https://beta.example.com",
		},
	})
	writeJSON(t, dir, "aaa_menu.json", []map[string]string{
		{
			"name":            "Latte",
			"price":           "$5",
			"restaurant_name": "Alpha Cafe",
			"restaurant_url":  "https://alpha.example.com",
		},
		{
			"name":            "Mocha",
			"restaurant_name": "Alpha Cafe",
			"restaurant_url":  "https://alpha.example.com",
		},
	})

	csvPath := filepath.Join(dir, "all.csv")
	summaryPath := filepath.Join(dir, "summary.txt")
	res, err := Run(dir, csvPath, summaryPath)
	require.NoError(t, err)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])

	// aaa sorts before bbb, so Alpha's items take sr_no 1 and 2.
	assert.Equal(t, []string{"1", "Alpha Cafe", "https://alpha.example.com", "", "", "Latte", "", "$5"}, rows[1])
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "Mocha", rows[2][5])
	assert.Equal(t, []string{"3", "Beta Bistro", "https://beta.example.com", "Lunch", "Sandwiches", "Reuben", "", "$16"}, rows[3])

	assert.Equal(t, 3, res.Stats.TotalRecords)
	assert.Equal(t, 1, res.Stats.WithMenuType)
	assert.Equal(t, 1, res.Stats.WithSection)
	assert.Equal(t, 1, res.Stats.WithBoth)
	assert.Equal(t, 2, res.Stats.WithPrice)
	assert.Equal(t, 1, res.Stats.EmptyPrice)
	assert.Equal(t, 3, res.Stats.EmptyDescription)
	assert.Equal(t, map[string]int{"Alpha Cafe": 2, "Beta Bistro": 1}, res.ByRestaurant)
}

func TestRunFieldFallbacks(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "legacy_menu.json", []map[string]string{
		{
			"item_name":  "Old Fashioned",
			"restaurant": "Legacy Bar",
			"website":    "https://legacy.example.com",
			"menu_name":  "Cocktails",
			"desc":       "Rye, bitters, orange",
			"cost":       "$14",
		},
	})

	csvPath := filepath.Join(dir, "all.csv")
	_, err := Run(dir, csvPath, filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"1", "Legacy Bar", "https://legacy.example.com",
		"Cocktails", "", "Old Fashioned", "Rye, bitters, orange", "$14",
	}, rows[1])
}

func TestRunSkipsNonArrayFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"not": "a list"}`), 0o644))
	writeJSON(t, dir, "ok_menu.json", []map[string]string{
		{"name": "Soup", "restaurant_name": "OK Diner", "price": "$6"},
	})

	res, err := Run(dir, filepath.Join(dir, "all.csv"), filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.TotalRecords)
	assert.Equal(t, map[string]int{"OK Diner": 1}, res.ByRestaurant)
}

func TestRunSkipsNonObjectRecords(t *testing.T) {
	dir := t.TempDir()
	mixed := `[
		{"name": "Soup", "restaurant_name": "OK Diner", "price": "$6"},
		"stray string",
		42,
		{"name": "Stew", "restaurant_name": "OK Diner", "price": "$9"}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed_menu.json"), []byte(mixed), 0o644))

	res, err := Run(dir, filepath.Join(dir, "all.csv"), filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.TotalRecords)
	assert.Equal(t, map[string]int{"OK Diner": 2}, res.ByRestaurant)
}

func TestRunIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "a_menu.json", []map[string]string{
		{"name": "Latte", "price": "$5", "restaurant_name": "Alpha Cafe"},
		{"name": "Mocha", "restaurant_name": "Alpha Cafe"},
	})
	writeJSON(t, dir, "b_menu.json", []map[string]string{
		{"name": "Reuben", "price": "$16", "section": "Sandwiches", "restaurant_name": "Beta Bistro"},
	})

	csvPath := filepath.Join(dir, "all.csv")
	summaryPath := filepath.Join(dir, "summary.txt")

	_, err := Run(dir, csvPath, summaryPath)
	require.NoError(t, err)
	csv1, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	sum1, err := os.ReadFile(summaryPath)
	require.NoError(t, err)

	_, err = Run(dir, csvPath, summaryPath)
	require.NoError(t, err)
	csv2, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	sum2, err := os.ReadFile(summaryPath)
	require.NoError(t, err)

	assert.Equal(t, csv1, csv2)
	assert.Equal(t, sum1, sum2)
}

func TestRunErrorsWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(dir, filepath.Join(dir, "all.csv"), filepath.Join(dir, "summary.txt"))
	assert.ErrorContains(t, err, "no JSON files")
}

func TestSummaryContent(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "m_menu.json", []map[string]string{
		{"name": "Burger", "price": "$12", "section": "Mains", "menu_type": "Dinner", "restaurant_name": "Grill House"},
		{"name": "Fries", "restaurant_name": "Grill House"},
	})

	summaryPath := filepath.Join(dir, "csv_summary.txt")
	_, err := Run(dir, filepath.Join(dir, "all.csv"), summaryPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, "UNIFIED CSV SUMMARY")
	assert.Contains(t, text, "Total Records: 2")
	assert.Contains(t, text, "Total Restaurants: 1")
	assert.Contains(t, text, "Serial Numbers: 1 to 2")
	assert.Contains(t, text, "Records with price: 1 (50.0%)")
	assert.Contains(t, text, "Records without price: 1 (50.0%)")
	assert.Contains(t, text, "Grill House")
	assert.Contains(t, text, "2 records")
}

func TestRowsFromItems(t *testing.T) {
	items := []models.Item{
		{Name: "Scone", MenuName: "Bakery", RestaurantName: "Tea Room", RestaurantURL: "https://tea.example.com"},
		{Name: "Tea", MenuType: "Drinks", MenuName: "ignored", Price: "$4", RestaurantName: "Tea Room"},
	}
	rows := RowsFromItems(items, 5)
	require.Len(t, rows, 2)
	assert.Equal(t, 5, rows[0].SrNo)
	assert.Equal(t, "Bakery", rows[0].MenuType)
	assert.Equal(t, 6, rows[1].SrNo)
	assert.Equal(t, "Drinks", rows[1].MenuType)
}
