// Package aggregate merges the per-restaurant menu JSON files into a
// single CSV with stable serial numbers, plus a plain-text summary of
// field coverage per restaurant.
package aggregate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/saratoga-data/menuharvest/models"
)

// Columns is the CSV header, in output order.
var Columns = []string{
	"sr_no",
	"restaurant_name",
	"restaurant_url",
	"menu_type",
	"section",
	"name",
	"description",
	"price",
}

// Stats counts field coverage across all aggregated records.
type Stats struct {
	TotalRecords     int
	WithMenuType     int
	WithSection      int
	WithBoth         int
	WithPrice        int
	EmptyPrice       int
	EmptyDescription int
	EmptyName        int
}

// Result reports what an aggregation run produced.
type Result struct {
	CSVPath     string
	SummaryPath string
	Stats       Stats
	// ByRestaurant maps restaurant name to record count. Files whose
	// records carry no restaurant name are keyed by the file stem.
	ByRestaurant map[string]int
}

// Run reads every *.json file in srcDir, writes the unified CSV to
// csvPath and the summary to summaryPath. Files that are not JSON
// arrays are skipped with a warning rather than failing the run.
func Run(srcDir, csvPath, summaryPath string) (*Result, error) {
	files, err := filepath.Glob(filepath.Join(srcDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", srcDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no JSON files found in %s", srcDir)
	}
	sort.Strings(files)
	slog.Info("aggregating menu files", "count", len(files), "dir", srcDir)

	out, err := os.Create(csvPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", csvPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	res := &Result{
		CSVPath:      csvPath,
		SummaryPath:  summaryPath,
		ByRestaurant: make(map[string]int),
	}
	srNo := 1

	for _, file := range files {
		count, restaurant, err := appendFile(w, file, &srNo, &res.Stats)
		if err != nil {
			slog.Warn("skipping menu file", "file", filepath.Base(file), "error", err)
			continue
		}
		if restaurant == "" {
			restaurant = strings.TrimSuffix(filepath.Base(file), ".json")
			restaurant = strings.TrimSuffix(restaurant, "_menu")
		}
		res.ByRestaurant[restaurant] += count
		slog.Info("processed menu file", "file", filepath.Base(file), "records", count)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write %s: %w", csvPath, err)
	}
	res.Stats.TotalRecords = srNo - 1

	if err := writeSummary(res); err != nil {
		return nil, err
	}

	slog.Info("aggregation complete",
		"records", res.Stats.TotalRecords,
		"restaurants", len(res.ByRestaurant),
		"csv", csvPath)
	return res, nil
}

// appendFile streams one JSON file's records into the CSV writer and
// returns how many records it contributed, plus the restaurant name
// from the first record that carries one.
func appendFile(w *csv.Writer, path string, srNo *int, stats *Stats) (int, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, "", err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return 0, "", fmt.Errorf("not a JSON array: %w", err)
	}

	count := 0
	restaurant := ""
	for i, msg := range records {
		// Only object elements are menu records; anything else in the
		// array is skipped without losing the rest of the file.
		var rec map[string]any
		if err := json.Unmarshal(msg, &rec); err != nil {
			slog.Warn("skipping non-object record",
				"file", filepath.Base(path), "index", i)
			continue
		}
		row := normalizeRecord(rec)
		row.SrNo = *srNo

		tally(stats, row)

		if err := w.Write(row.fields()); err != nil {
			return count, restaurant, err
		}
		*srNo++
		count++

		if restaurant == "" && row.RestaurantName != "" {
			restaurant = row.RestaurantName
		}
	}
	return count, restaurant, nil
}

// Row is one normalized CSV record.
type Row struct {
	SrNo           int
	RestaurantName string
	RestaurantURL  string
	MenuType       string
	Section        string
	Name           string
	Description    string
	Price          string
}

func (r Row) fields() []string {
	return []string{
		strconv.Itoa(r.SrNo),
		r.RestaurantName,
		r.RestaurantURL,
		r.MenuType,
		r.Section,
		r.Name,
		r.Description,
		r.Price,
	}
}

// normalizeRecord maps a raw menu record onto the standard columns,
// falling back through legacy field names some scrapers used before
// the schema settled.
func normalizeRecord(rec map[string]any) Row {
	return Row{
		RestaurantName: pick(rec, "restaurant_name", "restaurant"),
		RestaurantURL:  pick(rec, "restaurant_url", "url", "website"),
		MenuType:       pick(rec, "menu_type", "menu_name"),
		Section:        pick(rec, "section"),
		Name:           pick(rec, "name", "item_name", "item", "title"),
		Description:    pick(rec, "description", "desc", "details"),
		Price:          pick(rec, "price", "pricing", "cost"),
	}
}

// pick returns the first non-empty value among the named keys.
func pick(rec map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := rec[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}
	return ""
}

func tally(stats *Stats, row Row) {
	if row.MenuType != "" {
		stats.WithMenuType++
	}
	if row.Section != "" {
		stats.WithSection++
	}
	if row.MenuType != "" && row.Section != "" {
		stats.WithBoth++
	}
	if row.Price != "" {
		stats.WithPrice++
	} else {
		stats.EmptyPrice++
	}
	if row.Description == "" {
		stats.EmptyDescription++
	}
	if row.Name == "" {
		stats.EmptyName++
	}
}

// RowsFromItems converts scraped items to normalized rows. Used by
// tests and by callers that want the CSV schema without the file round
// trip.
func RowsFromItems(items []models.Item, startSrNo int) []Row {
	rows := make([]Row, 0, len(items))
	for i, it := range items {
		menuType := it.MenuType
		if menuType == "" {
			menuType = it.MenuName
		}
		rows = append(rows, Row{
			SrNo:           startSrNo + i,
			RestaurantName: it.RestaurantName,
			RestaurantURL:  it.RestaurantURL,
			MenuType:       menuType,
			Section:        it.Section,
			Name:           it.Name,
			Description:    it.Description,
			Price:          it.Price,
		})
	}
	return rows
}

const summaryRule = "================================================================================"
const summaryDash = "--------------------------------------------------------------------------------"

func writeSummary(res *Result) error {
	var b strings.Builder
	s := res.Stats
	total := s.TotalRecords

	b.WriteString(summaryRule + "\n")
	b.WriteString("UNIFIED CSV SUMMARY\n")
	b.WriteString(summaryRule + "\n\n")
	fmt.Fprintf(&b, "Total Records: %d\n", total)
	fmt.Fprintf(&b, "Total Restaurants: %d\n", len(res.ByRestaurant))
	fmt.Fprintf(&b, "CSV File: %s\n", res.CSVPath)
	fmt.Fprintf(&b, "Serial Numbers: 1 to %d\n\n", total)

	b.WriteString("Columns:\n")
	b.WriteString("  - sr_no: Serial number (1, 2, 3, ...)\n")
	b.WriteString("  - restaurant_name: Name of the restaurant\n")
	b.WriteString("  - restaurant_url: Website URL\n")
	b.WriteString("  - menu_type: Menu type (Lunch, Dinner, Breakfast, etc.) from 'menu_type' or 'menu_name'\n")
	b.WriteString("  - section: Menu section (Appetizers, Entrees, etc.) from 'section'\n")
	b.WriteString("  - name: Menu item name\n")
	b.WriteString("  - description: Item description\n")
	b.WriteString("  - price: Item price\n\n")

	b.WriteString("Sanity Check:\n")
	b.WriteString(summaryDash + "\n")
	fmt.Fprintf(&b, "Records with menu_type: %d (%s)\n", s.WithMenuType, pct(s.WithMenuType, total))
	fmt.Fprintf(&b, "Records with section: %d (%s)\n", s.WithSection, pct(s.WithSection, total))
	fmt.Fprintf(&b, "Records with both: %d (%s)\n", s.WithBoth, pct(s.WithBoth, total))
	fmt.Fprintf(&b, "Records with price: %d (%s)\n", s.WithPrice, pct(s.WithPrice, total))
	fmt.Fprintf(&b, "Records without price: %d (%s)\n", s.EmptyPrice, pct(s.EmptyPrice, total))
	fmt.Fprintf(&b, "Records without description: %d (%s)\n", s.EmptyDescription, pct(s.EmptyDescription, total))
	fmt.Fprintf(&b, "Records without name: %d (%s)\n\n", s.EmptyName, pct(s.EmptyName, total))

	b.WriteString("Records by Restaurant:\n")
	b.WriteString(summaryDash + "\n")
	for _, rc := range sortedByCount(res.ByRestaurant) {
		fmt.Fprintf(&b, "%-50s %6d records\n", rc.name, rc.count)
	}

	if err := os.WriteFile(res.SummaryPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", res.SummaryPath, err)
	}
	return nil
}

func pct(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

type restaurantCount struct {
	name  string
	count int
}

func sortedByCount(m map[string]int) []restaurantCount {
	out := make([]restaurantCount, 0, len(m))
	for name, count := range m {
		out = append(out, restaurantCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}
