package models

import "strings"

// Item is the common record every scraper produces. Field naming follows the
// JSON convention the aggregator expects; only Name is required.
type Item struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Price          string `json:"price,omitempty"`
	Section        string `json:"section,omitempty"`
	MenuType       string `json:"menu_type,omitempty"`
	MenuName       string `json:"menu_name,omitempty"`
	RestaurantName string `json:"restaurant_name"`
	RestaurantURL  string `json:"restaurant_url"`
}

// Dedupe drops repeated items, keeping the first occurrence. Two items are
// the same when name, section and price all match (case-insensitive on name).
func Dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it.Name)) + "|" + it.Section + "|" + it.Price
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
