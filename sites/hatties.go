package sites

import (
	"context"
	"log/slog"

	"github.com/saratoga-data/menuharvest/models"
	"github.com/saratoga-data/menuharvest/vision"
)

func init() { Register(hatties{}) }

// hatties reads the three seasonal PDF menus Hattie's publishes. The upload
// paths change each season, so they are pinned rather than discovered.
type hatties struct{}

var hattiesPDFMenus = []struct {
	url  string
	name string
}{
	{"https://hattiesrestaurants.com/wp-content/uploads/2025/12/Hatties-Saratoga-Springs-Brunch-Winter-Menu-2025.pdf", "Brunch Menu"},
	{"https://hattiesrestaurants.com/wp-content/uploads/2025/12/Hatties-Saratoga-Springs-Dinner-Winter-Menu-2025.pdf", "Dinner Menu"},
	{"https://hattiesrestaurants.com/wp-content/uploads/2025/11/Hatties-Wilton-Menu-2025.pdf", "All Day Menu"},
}

func (hatties) Slug() string                 { return "hattiesrestaurants_com" }
func (hatties) Restaurant() (string, string) { return "Hattie's", "https://hattiesrestaurants.com/" }
func (hatties) NeedsBrowser() bool           { return false }
func (hatties) NeedsVision() bool            { return true }

func (h hatties) Scrape(ctx context.Context, env *Env) ([]models.Item, error) {
	name, siteURL := h.Restaurant()

	var all []models.Item
	for _, menu := range hattiesPDFMenus {
		pdf, err := env.Fetch.GetPDF(ctx, menu.url)
		if err != nil {
			slog.Warn("menu PDF download failed", "menu", menu.name, "error", err)
			continue
		}
		items, err := env.Vision.ExtractFromPDF(ctx, pdf, vision.MenuPrompt(name, siteURL, menu.name))
		if err != nil {
			slog.Warn("menu PDF extraction failed", "menu", menu.name, "error", err)
			continue
		}
		for i := range items {
			items[i].MenuName = menu.name
			if items[i].MenuType == "" {
				items[i].MenuType = menu.name
			}
		}
		all = append(all, fillSectionPrices(items)...)
	}
	if len(all) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeVisionFailure, "no PDF menu yielded items", nil)
	}
	return models.Dedupe(all), nil
}

// fillSectionPrices backfills missing prices on menus where a whole section
// shares one printed price. Only applies when the section's priced items all
// agree, so guessing never overrides mixed pricing.
func fillSectionPrices(items []models.Item) []models.Item {
	sectionPrice := map[string]string{}
	for _, it := range items {
		if it.Price == "" {
			continue
		}
		key := it.MenuName + "|" + it.Section
		switch prev, ok := sectionPrice[key]; {
		case !ok:
			sectionPrice[key] = it.Price
		case prev != it.Price:
			sectionPrice[key] = "" // mixed pricing, do not backfill
		}
	}
	for i, it := range items {
		if it.Price == "" {
			if p := sectionPrice[it.MenuName+"|"+it.Section]; p != "" {
				items[i].Price = p
			}
		}
	}
	return items
}
